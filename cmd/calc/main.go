// Command calc is an interactive REPL over a single formulon.Engine.
// It keeps one running variable environment and lets the user set,
// inspect, and clear variables between formula evaluations.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/entrydsm/formulon"
)

const helpText = `formulon calculator REPL

Commands:
  set <name> <value>   Bind a variable (numbers, true/false, or "quoted strings")
  unset <name>         Remove a variable binding
  vars                 List current variable bindings
  steps                Enter multi-step mode: one formula per line, blank line to run
  help                 Show this help message
  exit / quit          Exit the REPL

Any other input is evaluated as a formula against the current variables.
`

func main() {
	tbl, err := formulon.BuildParsingTable(formulon.DefaultGrammar())
	if err != nil {
		fmt.Fprintf(os.Stderr, "building parsing table: %v\n", err)
		os.Exit(1)
	}
	engine := formulon.NewEngine(tbl)
	env := formulon.Env{}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("formulon — expression and multi-step calculator")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "vars":
			if len(env) == 0 {
				fmt.Println("(no variables set)")
			} else {
				for name, val := range env {
					fmt.Printf("  %s = %s\n", name, val)
				}
			}

		case "set":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: set <name> <value>")
				continue
			}
			name := parts[1]
			if !formulon.IsValidIdentifier(name) {
				fmt.Fprintf(os.Stderr, "%q is not a valid variable name\n", name)
				continue
			}
			raw := strings.Join(parts[2:], " ")
			val, err := parseLiteral(raw)
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid value %q: %v\n", raw, err)
				continue
			}
			env[name] = val

		case "unset":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: unset <name>")
				continue
			}
			delete(env, parts[1])

		case "steps":
			runStepsMode(scanner, engine, env)

		default:
			val, err := engine.Calculate(line, env)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(val)
		}
	}
}

// runStepsMode reads formula lines until a blank line, then runs them
// as one ordered multi-step calculation and merges the final
// environment back into env so later single-formula lines can see it.
func runStepsMode(scanner *bufio.Scanner, engine *formulon.Engine, env formulon.Env) {
	fmt.Println("entering multi-step mode; blank line runs the sequence")
	var steps []formulon.Step
	for {
		fmt.Print(".. ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		steps = append(steps, formulon.Step{Formula: line})
	}
	if len(steps) == 0 {
		return
	}

	results, finalEnv, err := engine.CalculateMultiStep(context.Background(), env, steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "step error: %v\n", err)
		return
	}
	for i, r := range results {
		fmt.Printf("step %d: %s\n", i+1, r.Value)
	}
	for k, v := range finalEnv {
		env[k] = v
	}
}

// parseLiteral interprets a "set" command's raw argument as a quoted
// string, a boolean (true/false in any letter case), or a number, tried
// in that order.
func parseLiteral(raw string) (formulon.Value, error) {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return formulon.String(raw[1 : len(raw)-1]), nil
	}
	switch strings.ToLower(raw) {
	case "true":
		return formulon.Boolean(true), nil
	case "false":
		return formulon.Boolean(false), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return formulon.Value{}, fmt.Errorf("not a number, boolean, or quoted string")
	}
	return formulon.Number(f), nil
}

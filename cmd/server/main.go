// Command server exposes formulon.Engine over HTTP: POST /calculate for
// a single formula, POST /calculate/steps for a multi-step request.
// Both endpoints are stateless; every request carries its own variable
// environment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/entrydsm/formulon"
)

var allowedOrigins = []string{
	"http://localhost:5173",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// jsonValue is the wire shape of a formulon.Value: a kind tag
// (number/boolean/string/null) plus the matching one of the three
// payload fields; a null value carries no payload.
type jsonValue struct {
	Kind string   `json:"kind"`
	Num  *float64 `json:"num,omitempty"`
	Bool *bool    `json:"bool,omitempty"`
	Str  *string  `json:"str,omitempty"`
}

func marshalValue(v formulon.Value) jsonValue {
	switch v.Kind() {
	case formulon.KindNumber:
		n := v.Num()
		return jsonValue{Kind: "number", Num: &n}
	case formulon.KindBoolean:
		b := v.Bool()
		return jsonValue{Kind: "boolean", Bool: &b}
	case formulon.KindString:
		s := v.Str()
		return jsonValue{Kind: "string", Str: &s}
	default:
		return jsonValue{Kind: "null"}
	}
}

func unmarshalValue(jv jsonValue) (formulon.Value, error) {
	switch jv.Kind {
	case "number":
		if jv.Num == nil {
			return formulon.Value{}, fmt.Errorf("missing num for number value")
		}
		return formulon.Number(*jv.Num), nil
	case "boolean":
		if jv.Bool == nil {
			return formulon.Value{}, fmt.Errorf("missing bool for boolean value")
		}
		return formulon.Boolean(*jv.Bool), nil
	case "string":
		if jv.Str == nil {
			return formulon.Value{}, fmt.Errorf("missing str for string value")
		}
		return formulon.String(*jv.Str), nil
	case "", "null":
		return formulon.Null(), nil
	default:
		return formulon.Value{}, fmt.Errorf("unknown value kind %q", jv.Kind)
	}
}

func decodeVariables(raw map[string]jsonValue) (formulon.Env, error) {
	env := make(formulon.Env, len(raw))
	for name, jv := range raw {
		v, err := unmarshalValue(jv)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		env[name] = v
	}
	return env, nil
}

func handleCalculate(engine *formulon.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var body struct {
			Formula   string               `json:"formula"`
			Variables map[string]jsonValue `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if body.Formula == "" {
			writeError(w, http.StatusBadRequest, "missing field: formula")
			return
		}

		env, err := decodeVariables(body.Variables)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		val, err := engine.Calculate(body.Formula, env)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, marshalValue(val))
	}
}

func handleCalculateSteps(engine *formulon.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var body struct {
			Variables map[string]jsonValue `json:"variables"`
			Steps     []struct {
				Name    string `json:"name"`
				Formula string `json:"formula"`
			} `json:"steps"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(body.Steps) == 0 {
			writeError(w, http.StatusBadRequest, "missing field: steps")
			return
		}

		env, err := decodeVariables(body.Variables)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		steps := make([]formulon.Step, len(body.Steps))
		for i, s := range body.Steps {
			steps[i] = formulon.Step{Name: s.Name, Formula: s.Formula}
		}

		results, finalEnv, err := engine.CalculateMultiStep(r.Context(), env, steps)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		jsonResults := make([]jsonValue, len(results))
		for i, res := range results {
			jsonResults[i] = marshalValue(res.Value)
		}
		jsonEnv := make(map[string]jsonValue, len(finalEnv))
		for name, v := range finalEnv {
			jsonEnv[name] = marshalValue(v)
		}

		writeJSON(w, http.StatusOK, struct {
			Results []jsonValue          `json:"results"`
			Env     map[string]jsonValue `json:"env"`
		}{Results: jsonResults, Env: jsonEnv})
	}
}

func main() {
	port := flag.Int("port", 8080, "port to listen on")
	flag.Parse()

	tbl, err := formulon.BuildParsingTable(formulon.DefaultGrammar())
	if err != nil {
		fmt.Fprintf(os.Stderr, "building parsing table: %v\n", err)
		os.Exit(1)
	}
	engine := formulon.NewEngine(tbl)

	mux := http.NewServeMux()
	mux.HandleFunc("/calculate", handleCalculate(engine))
	mux.HandleFunc("/calculate/steps", handleCalculateSteps(engine))

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("formulon server listening on %s\n", addr)
	if err := http.ListenAndServe(addr, corsMiddleware(mux)); err != nil {
		fmt.Fprintf(flag.CommandLine.Output(), "server error: %v\n", err)
	}
}

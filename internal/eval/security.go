package eval

import (
	"strings"

	"github.com/entrydsm/formulon/internal/ast"
	"github.com/entrydsm/formulon/internal/ferr"
)

// reservedNames are host-level tokens a formula must never be able to
// name a variable or function after, regardless of how the embedding
// application's own registry or environment happens to be named.
// Matching is case-insensitive, the same as function-name resolution.
var reservedNames = map[string]bool{
	"eval": true, "exec": true, "system": true, "runtime": true,
	"process": true, "file": true, "io": true, "shell": true,
	"script": true, "import": true, "require": true, "load": true,
}

// Validate walks n and rejects any Variable or FunctionCall whose name
// matches a reserved host-level token. It runs before evaluation, not
// during it, so a formula referencing a reserved name never reaches
// the registry or the environment lookup.
func Validate(n ast.Node) error {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *ast.Variable:
		if reservedNames[strings.ToLower(v.Name)] {
			return ferr.New(ferr.SecurityViolation, "%q is a reserved name and cannot be used as a variable", v.Name)
		}
	case *ast.FunctionCall:
		if reservedNames[strings.ToLower(v.Name)] {
			return ferr.New(ferr.SecurityViolation, "%q is a reserved name and cannot be used as a function", v.Name)
		}
	}
	for _, child := range n.Children() {
		if err := Validate(child); err != nil {
			return err
		}
	}
	return nil
}

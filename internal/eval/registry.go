package eval

import (
	"math"
	"strings"
	"sync"

	"github.com/entrydsm/formulon/internal/ferr"
)

// Func is a registered built-in: args are pre-evaluated, left to
// right; it returns its own ferr.ArityMismatch/ferr.DomainError/
// ferr.TypeMismatch as appropriate.
type Func func(args []Value) (Value, error)

// Registry holds the function table an Evaluator calls into.
// RegisterFunction is the only mutator and is safe for concurrent use,
// matching the once-seeded-then-occasionally-extended table pattern a
// long-lived calculator service needs (new domain functions registered
// at startup from several goroutines without a data race).
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns a registry pre-seeded with the built-in function
// set.
func NewRegistry() *Registry {
	r := &Registry{funcs: map[string]Func{}}
	for name, fn := range builtins {
		r.funcs[name] = fn
	}
	return r
}

// Lookup returns the function registered under name, resolved
// case-insensitively.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.ToUpper(name)]
	return fn, ok
}

// RegisterFunction adds or replaces a function under name. Built-in
// names are reserved and cannot be overridden, case-insensitively;
// attempting to do so is a ferr.SecurityViolation, not a silent
// shadow, since a formula that looks like it calls SUM should never
// silently call something else. The host-level reserved names rejected
// by Validate (eval, exec, system, ...) cannot be registered either, so
// a registry can never be made to resolve one of them to anything.
func (r *Registry) RegisterFunction(name string, fn Func) error {
	upper := strings.ToUpper(name)
	if _, reserved := builtins[upper]; reserved {
		return ferr.New(ferr.SecurityViolation, "%q is a reserved built-in function name", name)
	}
	if upper == "IF" {
		// The parser routes every casing of if(c, t, f) to the If node
		// before function resolution; a registered IF could never be
		// called and would only mislead.
		return ferr.New(ferr.SecurityViolation, "%q is reserved for the conditional form", name)
	}
	if reservedNames[strings.ToLower(name)] {
		return ferr.New(ferr.SecurityViolation, "%q is a reserved host-level name", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[upper] = fn
	return nil
}

func arity(args []Value, want int, name string) error {
	if len(args) != want {
		return ferr.New(ferr.ArityMismatch, "%s expects %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func minArity(args []Value, want int, name string) error {
	if len(args) < want {
		return ferr.New(ferr.ArityMismatch, "%s expects at least %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func numbers(args []Value, name string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		if a.Kind() != KindNumber {
			return nil, ferr.New(ferr.TypeMismatch, "%s: argument %d is not a number", name, i+1)
		}
		out[i] = a.Num()
	}
	return out, nil
}

var builtins = map[string]Func{
	"ABS": func(args []Value) (Value, error) {
		if err := arity(args, 1, "ABS"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "ABS")
		if err != nil {
			return Value{}, err
		}
		return Number(math.Abs(nums[0])), nil
	},
	"SQRT": func(args []Value) (Value, error) {
		if err := arity(args, 1, "SQRT"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "SQRT")
		if err != nil {
			return Value{}, err
		}
		if nums[0] < 0 {
			return Value{}, ferr.New(ferr.DomainError, "SQRT of a negative number")
		}
		return Number(math.Sqrt(nums[0])), nil
	},
	"ROUND": func(args []Value) (Value, error) {
		if err := minArity(args, 1, "ROUND"); err != nil {
			return Value{}, err
		}
		if len(args) > 2 {
			return Value{}, ferr.New(ferr.ArityMismatch, "ROUND expects 1 or 2 arguments, got %d", len(args))
		}
		nums, err := numbers(args, "ROUND")
		if err != nil {
			return Value{}, err
		}
		digits := 0.0
		if len(nums) == 2 {
			digits = nums[1]
		}
		scale := math.Pow(10, digits)
		return Number(math.Round(nums[0]*scale) / scale), nil
	},
	"FLOOR": unaryMath("FLOOR", math.Floor),
	"CEIL":  unaryMath("CEIL", math.Ceil),
	"TRUNC": unaryMath("TRUNC", math.Trunc),
	"SIGN": func(args []Value) (Value, error) {
		if err := arity(args, 1, "SIGN"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "SIGN")
		if err != nil {
			return Value{}, err
		}
		switch {
		case nums[0] > 0:
			return Number(1), nil
		case nums[0] < 0:
			return Number(-1), nil
		default:
			return Number(0), nil
		}
	},
	"EXP":   unaryMath("EXP", math.Exp),
	"LOG":   unaryDomain("LOG", func(x float64) bool { return x <= 0 }, math.Log),
	"LOG10": unaryDomain("LOG10", func(x float64) bool { return x <= 0 }, math.Log10),
	"SIN":   unaryMath("SIN", math.Sin),
	"COS":   unaryMath("COS", math.Cos),
	"TAN":   unaryMath("TAN", math.Tan),
	"ASIN":  unaryDomain("ASIN", func(x float64) bool { return x < -1 || x > 1 }, math.Asin),
	"ACOS":  unaryDomain("ACOS", func(x float64) bool { return x < -1 || x > 1 }, math.Acos),
	"ATAN":  unaryMath("ATAN", math.Atan),
	"ATAN2": func(args []Value) (Value, error) {
		if err := arity(args, 2, "ATAN2"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "ATAN2")
		if err != nil {
			return Value{}, err
		}
		return Number(math.Atan2(nums[0], nums[1])), nil
	},
	"POW": func(args []Value) (Value, error) {
		if err := arity(args, 2, "POW"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "POW")
		if err != nil {
			return Value{}, err
		}
		if nums[0] == 0 && nums[1] == 0 {
			return Value{}, ferr.New(ferr.DomainError, "0 raised to the power of 0")
		}
		result := math.Pow(nums[0], nums[1])
		if math.IsNaN(result) {
			return Value{}, ferr.New(ferr.DomainError, "POW produced a non-real result")
		}
		return Number(result), nil
	},
	"MOD": func(args []Value) (Value, error) {
		if err := arity(args, 2, "MOD"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "MOD")
		if err != nil {
			return Value{}, err
		}
		if nums[1] == 0 {
			return Value{}, ferr.New(ferr.DivisionByZero, "MOD by zero")
		}
		return Number(math.Mod(nums[0], nums[1])), nil
	},
	"MIN": func(args []Value) (Value, error) {
		if err := minArity(args, 1, "MIN"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "MIN")
		if err != nil {
			return Value{}, err
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return Number(m), nil
	},
	"MAX": func(args []Value) (Value, error) {
		if err := minArity(args, 1, "MAX"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "MAX")
		if err != nil {
			return Value{}, err
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return Number(m), nil
	},
	"SUM": func(args []Value) (Value, error) {
		nums, err := numbers(args, "SUM")
		if err != nil {
			return Value{}, err
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return Number(s), nil
	},
	"AVG": func(args []Value) (Value, error) {
		if err := minArity(args, 1, "AVG"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "AVG")
		if err != nil {
			return Value{}, err
		}
		s := 0.0
		for _, n := range nums {
			s += n
		}
		return Number(s / float64(len(nums))), nil
	},
	"GCD": func(args []Value) (Value, error) {
		if err := arity(args, 2, "GCD"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "GCD")
		if err != nil {
			return Value{}, err
		}
		a, b := int64(math.Abs(nums[0])), int64(math.Abs(nums[1]))
		for b != 0 {
			a, b = b, a%b
		}
		return Number(float64(a)), nil
	},
	"LCM": func(args []Value) (Value, error) {
		if err := arity(args, 2, "LCM"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "LCM")
		if err != nil {
			return Value{}, err
		}
		a, b := int64(math.Abs(nums[0])), int64(math.Abs(nums[1]))
		if a == 0 || b == 0 {
			return Number(0), nil
		}
		g := a
		x, y := a, b
		for y != 0 {
			g, y = y, x%y
			x = g
		}
		return Number(float64(a / g * b)), nil
	},
	"FACTORIAL": func(args []Value) (Value, error) {
		if err := arity(args, 1, "FACTORIAL"); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, "FACTORIAL")
		if err != nil {
			return Value{}, err
		}
		n := nums[0]
		if n < 0 || n != math.Trunc(n) {
			return Value{}, ferr.New(ferr.DomainError, "FACTORIAL expects a non-negative integer")
		}
		if n > 170 {
			return Value{}, ferr.New(ferr.DomainError, "FACTORIAL argument too large")
		}
		result := 1.0
		for i := 2.0; i <= n; i++ {
			result *= i
		}
		return Number(result), nil
	},
	"PI": func(args []Value) (Value, error) {
		if err := arity(args, 0, "PI"); err != nil {
			return Value{}, err
		}
		return Number(math.Pi), nil
	},
	"E": func(args []Value) (Value, error) {
		if err := arity(args, 0, "E"); err != nil {
			return Value{}, err
		}
		return Number(math.E), nil
	},
}

func unaryMath(name string, fn func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		if err := arity(args, 1, name); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, name)
		if err != nil {
			return Value{}, err
		}
		return Number(fn(nums[0])), nil
	}
}

func unaryDomain(name string, outOfDomain func(float64) bool, fn func(float64) float64) Func {
	return func(args []Value) (Value, error) {
		if err := arity(args, 1, name); err != nil {
			return Value{}, err
		}
		nums, err := numbers(args, name)
		if err != nil {
			return Value{}, err
		}
		if outOfDomain(nums[0]) {
			return Value{}, ferr.New(ferr.DomainError, "%s argument out of domain", name)
		}
		return Number(fn(nums[0])), nil
	}
}

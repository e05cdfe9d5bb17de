package field

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tombee/ruline/pkg/value"
)

// Func is a library function over resolved arguments.
type Func func(args []any) (any, error)

// ArgumentCountError reports a call with the wrong number of arguments.
type ArgumentCountError struct {
	Expected int
	// Minimum is true when Expected is a lower bound
	Minimum  bool
	Received int
}

// Error implements the error interface.
func (e *ArgumentCountError) Error() string {
	if e.Minimum {
		return fmt.Sprintf("expected at least %d arguments, got %d", e.Expected, e.Received)
	}
	return fmt.Sprintf("expected %d arguments, got %d", e.Expected, e.Received)
}

func (e *ArgumentCountError) ErrorType() string { return "argument" }
func (e *ArgumentCountError) IsRetryable() bool { return false }

// ArgumentTypeError reports an argument of the wrong kind.
type ArgumentTypeError struct {
	Index int
	Want  value.Kind
	Got   value.Kind
}

// Error implements the error interface.
func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("argument %d: expected %s, got %s", e.Index, e.Want, e.Got)
}

func (e *ArgumentTypeError) ErrorType() string { return "argument" }
func (e *ArgumentTypeError) IsRetryable() bool { return false }

var functions = map[string]Func{
	"add":    variadic(func(n []float64) float64 { return fold(n, 0, func(a, b float64) float64 { return a + b }) }),
	"sub":    variadic(func(n []float64) float64 { return fold(n[1:], n[0], func(a, b float64) float64 { return a - b }) }),
	"mul":    variadic(func(n []float64) float64 { return fold(n, 1, func(a, b float64) float64 { return a * b }) }),
	"div":    variadic(func(n []float64) float64 { return fold(n[1:], n[0], func(a, b float64) float64 { return a / b }) }),
	"min":    variadic(func(n []float64) float64 { return fold(n, math.Inf(1), math.Min) }),
	"max":    variadic(func(n []float64) float64 { return fold(n, math.Inf(-1), math.Max) }),
	"mean":   variadic(mean),
	"median": variadic(median),
	"mod":    binary(math.Mod),
	"pow":    binary(math.Pow),
	"abs":    unary(math.Abs),
	"upper":  text(func() cases.Caser { return cases.Upper(language.Und) }),
	"lower":  text(func() cases.Caser { return cases.Lower(language.Und) }),
	"join":   join,
}

// FunctionNames lists the library's function names in order.
func FunctionNames() []string {
	return value.SortedKeys(functions)
}

func lookupFunction(name string) (Func, bool) {
	fn, ok := functions[name]
	return fn, ok
}

// number returns the float64 result, or nil when it is not finite since
// JSON cannot represent NaN or infinities.
func number(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func fold(n []float64, init float64, op func(a, b float64) float64) float64 {
	acc := init
	for _, x := range n {
		acc = op(acc, x)
	}
	return acc
}

func mean(n []float64) float64 {
	return fold(n, 0, func(a, b float64) float64 { return a + b }) / float64(len(n))
}

func median(n []float64) float64 {
	sorted := append([]float64(nil), n...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// variadic accepts one or more numbers, or a single array of numbers.
func variadic(op func([]float64) float64) Func {
	var fn Func
	fn = func(args []any) (any, error) {
		if len(args) < 1 {
			return nil, &ArgumentCountError{Expected: 1, Minimum: true, Received: len(args)}
		}
		if len(args) == 1 {
			if _, isNum := args[0].(float64); !isNum {
				list, ok := args[0].([]any)
				if !ok {
					return nil, &ArgumentTypeError{Index: 0, Want: value.KindArray, Got: value.KindOf(args[0])}
				}
				return fn(list)
			}
		}
		nums, err := numbers(args)
		if err != nil {
			return nil, err
		}
		return number(op(nums)), nil
	}
	return fn
}

func binary(op func(a, b float64) float64) Func {
	return func(args []any) (any, error) {
		if len(args) != 2 {
			return nil, &ArgumentCountError{Expected: 2, Received: len(args)}
		}
		nums, err := numbers(args)
		if err != nil {
			return nil, err
		}
		return number(op(nums[0], nums[1])), nil
	}
}

func unary(op func(float64) float64) Func {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, &ArgumentCountError{Expected: 1, Received: len(args)}
		}
		nums, err := numbers(args)
		if err != nil {
			return nil, err
		}
		return number(op(nums[0])), nil
	}
}

// text applies a caser built per call, since casers are stateful.
func text(newCaser func() cases.Caser) Func {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, &ArgumentCountError{Expected: 1, Received: len(args)}
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, &ArgumentTypeError{Index: 0, Want: value.KindString, Got: value.KindOf(args[0])}
		}
		return newCaser().String(s), nil
	}
}

// join concatenates strings and arrays of strings with a separator given
// as the first argument.
func join(args []any) (any, error) {
	if len(args) < 2 {
		return nil, &ArgumentCountError{Expected: 2, Minimum: true, Received: len(args)}
	}
	sep, ok := args[0].(string)
	if !ok {
		return nil, &ArgumentTypeError{Index: 0, Want: value.KindString, Got: value.KindOf(args[0])}
	}

	var parts []string
	for i, arg := range args[1:] {
		switch t := arg.(type) {
		case string:
			parts = append(parts, t)
		case []any:
			for _, e := range t {
				s, ok := e.(string)
				if !ok {
					return nil, &ArgumentTypeError{Index: i + 1, Want: value.KindString, Got: value.KindOf(e)}
				}
				parts = append(parts, s)
			}
		default:
			return nil, &ArgumentTypeError{Index: i + 1, Want: value.KindString, Got: value.KindOf(arg)}
		}
	}
	return strings.Join(parts, sep), nil
}

func numbers(args []any) ([]float64, error) {
	out := make([]float64, len(args))
	for i, arg := range args {
		f, ok := arg.(float64)
		if !ok {
			return nil, &ArgumentTypeError{Index: i, Want: value.KindNumber, Got: value.KindOf(arg)}
		}
		out[i] = f
	}
	return out, nil
}

// Package expression evaluates expr-lang expressions against the state of a
// workflow run. It backs the "expression" field kind.
package expression

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/tombee/ruline/pkg/errors"
)

// Evaluator evaluates expressions against a run environment.
// It caches compiled expressions for improved performance on repeated evaluations.
type Evaluator struct {
	cache map[cacheKey]*vm.Program
	mu    sync.RWMutex
}

type cacheKey struct {
	expression string
	asBool     bool
}

// New creates a new expression evaluator.
func New() *Evaluator {
	return &Evaluator{
		cache: make(map[cacheKey]*vm.Program),
	}
}

var (
	defaultOnce      sync.Once
	defaultEvaluator *Evaluator
)

// Default returns the process-wide evaluator.
func Default() *Evaluator {
	defaultOnce.Do(func() {
		defaultEvaluator = New()
	})
	return defaultEvaluator
}

// Evaluate evaluates a boolean expression against the given environment.
//
// The environment normally holds:
//   - data: the run's input document
//   - variables: the current variables
//   - outputs: outputs published by components, keyed by component id
//
// Example:
//
//	ok, err := eval.Evaluate(`data.total > 100 && has(variables.tags, "vip")`, env)
func (e *Evaluator) Evaluate(expression string, env map[string]interface{}) (bool, error) {
	if expression == "" {
		return true, nil // Empty expression defaults to true
	}

	result, err := e.run(expression, env, true)
	if err != nil {
		return false, err
	}

	boolResult, ok := result.(bool)
	if !ok {
		return false, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("expression must return boolean, got %T (%v)", result, result),
			Suggestion: "use comparison operators (==, !=, <, >, etc.) or boolean functions",
		}
	}

	return boolResult, nil
}

// Eval evaluates an expression and returns whatever value it produces.
func (e *Evaluator) Eval(expression string, env map[string]interface{}) (interface{}, error) {
	if expression == "" {
		return nil, &errors.ValidationError{
			Field:   "expression",
			Message: "expression is empty",
		}
	}
	return e.run(expression, env, false)
}

// Validate compiles an expression without running it.
func (e *Evaluator) Validate(expression string) error {
	if _, err := e.compile(expression, false); err != nil {
		return &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check expression syntax",
		}
	}
	return nil
}

func (e *Evaluator) run(expression string, env map[string]interface{}, asBool bool) (interface{}, error) {
	program, err := e.compile(expression, asBool)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("failed to compile expression: %s", err.Error()),
			Suggestion: "check expression syntax and ensure all referenced variables exist",
		}
	}

	// Note: "contains" is reserved in expr for string operations
	evalEnv := make(map[string]interface{}, len(env)+3)
	for k, v := range env {
		evalEnv[k] = v
	}
	evalEnv["has"] = containsFunc
	evalEnv["includes"] = containsFunc
	evalEnv["length"] = lenFunc

	result, err := expr.Run(program, evalEnv)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:      "expression",
			Message:    fmt.Sprintf("expression evaluation failed: %s", err.Error()),
			Suggestion: "verify that all referenced fields exist in data, variables or outputs",
		}
	}
	return result, nil
}

// compile compiles an expression and caches the result.
func (e *Evaluator) compile(expression string, asBool bool) (*vm.Program, error) {
	key := cacheKey{expression: expression, asBool: asBool}

	e.mu.RLock()
	if prog, ok := e.cache[key]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	env := map[string]interface{}{
		"has":      containsFunc,
		"includes": containsFunc,
		"length":   lenFunc,
	}

	opts := []expr.Option{
		expr.Env(env),
		// The run environment is only known at evaluation time
		expr.AllowUndefinedVariables(),
	}
	if asBool {
		opts = append(opts, expr.AsBool())
	}

	prog, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[key] = prog
	e.mu.Unlock()

	return prog, nil
}

// CacheSize returns the number of cached expressions.
func (e *Evaluator) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.cache)
}

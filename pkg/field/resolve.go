package field

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/internal/expression"
	"github.com/tombee/ruline/internal/jq"
	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/runctx"
	"github.com/tombee/ruline/pkg/value"
)

// NotFoundError is returned when a field refers to a variable, data path or
// output that does not exist in the run context.
type NotFoundError struct {
	Definition *Definition
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Definition)
}

// ErrorType implements errors.ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements errors.ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// Resolve computes the value of a field definition against a run context.
// The result is always a normalised value.
func Resolve(def *Definition, rc *runctx.Context) (any, error) {
	if def == nil {
		return nil, &errors.ValidationError{Message: "field definition is missing"}
	}

	switch def.Type {
	case TypeVariable:
		v, ok := rc.Variable(def.Variable)
		if !ok {
			return nil, &NotFoundError{Definition: def}
		}
		return v, nil

	case TypeData:
		v, ok, err := value.Lookup(rc.Data(), def.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &NotFoundError{Definition: def}
		}
		return v, nil

	case TypeOutput:
		out, ok := rc.Output(def.OutputID)
		if !ok {
			return nil, &NotFoundError{Definition: def}
		}
		v, ok, err := value.Lookup(out, def.Path)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &NotFoundError{Definition: def}
		}
		return v, nil

	case TypeValue:
		return resolveLiteral(def.literalTree(), rc)

	case TypeFunction:
		fn, ok := lookupFunction(def.Function)
		if !ok {
			return nil, &errors.NotFoundError{Resource: "function", ID: def.Function}
		}
		args := make([]any, len(def.Args))
		for i, arg := range def.Args {
			v, err := Resolve(arg, rc)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		v, err := fn(args)
		if err != nil {
			return nil, errors.Wrapf(err, "function %s", def.Function)
		}
		return v, nil

	case TypeExpression:
		v, err := expression.Default().Eval(def.Expression, rc.Env())
		if err != nil {
			return nil, err
		}
		return value.Normalize(v), nil

	case TypeJQ:
		input := rc.Data()
		if def.Input != nil {
			v, err := Resolve(def.Input, rc)
			if err != nil {
				return nil, err
			}
			input = v
		}
		v, err := jq.Default().Execute(rc.Context(), def.Query, input)
		if err != nil {
			return nil, errors.Wrapf(err, "jq %q", def.Query)
		}
		return value.Normalize(v), nil
	}

	return nil, &errors.ValidationError{
		Field:   "type",
		Message: fmt.Sprintf("unknown field type %q", def.Type),
	}
}

// resolveLiteral copies a decoded literal, replacing embedded field
// definitions with their resolved values.
func resolveLiteral(v any, rc *runctx.Context) (any, error) {
	switch t := v.(type) {
	case *Definition:
		return Resolve(t, rc)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := resolveLiteral(e, rc)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			r, err := resolveLiteral(e, rc)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	}
	return v, nil
}

// asDefinition interprets an object as a field definition when it carries a
// known "type" tag and decodes into a valid definition.
func asDefinition(obj map[string]any) (*Definition, bool) {
	tag, ok := obj["type"].(string)
	if !ok || !Type(tag).IsValid() {
		return nil, false
	}
	raw, err := yaml.Marshal(obj)
	if err != nil {
		return nil, false
	}
	def := new(Definition)
	if err := yaml.Unmarshal(raw, def); err != nil {
		return nil, false
	}
	if def.Validate() != nil {
		return nil, false
	}
	return def, true
}

// Package action implements the side-effecting workflow steps. The only
// action kind is set_variable, which writes a resolved field into the run's
// variables.
package action

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/runctx"
)

// Type is the kind of action.
type Type string

const (
	// TypeSetVariable resolves a field and stores it as a run variable.
	TypeSetVariable Type = "set_variable"
)

// Types lists the supported action kinds.
var Types = []Type{TypeSetVariable}

// Definition is the declared shape of an action.
type Definition struct {
	// Type selects the action kind
	Type Type `yaml:"type" json:"type"`

	// Variable is the variable to write (set_variable)
	Variable string `yaml:"variable,omitempty" json:"variable,omitempty"`

	// Value is the field whose resolved value is written (set_variable)
	Value *field.Definition `yaml:"value,omitempty" json:"value,omitempty"`
}

// Action is a built, immutable action. It is safe for concurrent use.
type Action struct {
	definition   Definition
	dependencies []string
}

// Parse decodes an action definition from JSON or YAML and builds it.
func Parse(data []byte) (*Action, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ValidationError{
			Field:   "action",
			Message: fmt.Sprintf("failed to parse action: %s", err.Error()),
		}
	}
	return New(def)
}

// New builds an action, rejecting unknown kinds and malformed fields.
func New(def Definition) (*Action, error) {
	switch def.Type {
	case TypeSetVariable:
		if def.Variable == "" {
			return nil, &errors.ValidationError{
				Field:   "variable",
				Message: "set_variable requires a variable name",
			}
		}
		if def.Value == nil {
			return nil, &errors.ValidationError{
				Field:   "value",
				Message: "set_variable requires a value",
			}
		}
		if err := def.Value.Validate(); err != nil {
			return nil, errors.Wrapf(err, "value of %s", def.Variable)
		}
		return &Action{
			definition:   def,
			dependencies: field.Dependencies(def.Value),
		}, nil

	case "":
		return nil, &errors.ValidationError{Field: "type", Message: "action type is required"}

	default:
		return nil, &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown action type %q", def.Type),
			Suggestion: fmt.Sprintf("use one of %v", Types),
		}
	}
}

// Definition returns the definition the action was built from.
func (a *Action) Definition() Definition {
	return a.definition
}

// Dependencies returns the sorted ids of components whose outputs the
// action reads.
func (a *Action) Dependencies() []string {
	return append([]string(nil), a.dependencies...)
}

// Execute performs the action against the run context. A failed resolution
// leaves the variables untouched.
func (a *Action) Execute(rc *runctx.Context) error {
	switch a.definition.Type {
	case TypeSetVariable:
		v, err := field.Resolve(a.definition.Value, rc)
		if err != nil {
			return errors.Wrapf(err, "set_variable %s", a.definition.Variable)
		}
		rc.SetVariable(a.definition.Variable, v)
		return nil
	}
	return &errors.ValidationError{
		Field:   "type",
		Message: fmt.Sprintf("unknown action type %q", a.definition.Type),
	}
}

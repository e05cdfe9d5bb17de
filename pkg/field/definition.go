// Package field resolves field definitions, the tagged value expressions
// used for comparison operands, action values and workflow outputs.
package field

import (
	"fmt"
	"sync/atomic"

	"github.com/tombee/ruline/internal/expression"
	"github.com/tombee/ruline/internal/jq"
	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/value"
)

// Type identifies the kind of a field definition.
type Type string

const (
	// TypeVariable reads a run variable by name.
	TypeVariable Type = "variable"
	// TypeData reads the run input at a JSON pointer.
	TypeData Type = "data"
	// TypeOutput reads a component's published output at a JSON pointer.
	TypeOutput Type = "output"
	// TypeValue is a literal. Objects inside the literal that are themselves
	// field definitions are resolved recursively.
	TypeValue Type = "value"
	// TypeFunction applies a library function to resolved arguments.
	TypeFunction Type = "function"
	// TypeExpression evaluates an expr-lang expression over data, variables
	// and outputs.
	TypeExpression Type = "expression"
	// TypeJQ runs a jq query over a resolved input or the run data.
	TypeJQ Type = "jq"
)

// IsValid reports whether t is a known field type.
func (t Type) IsValid() bool {
	switch t {
	case TypeVariable, TypeData, TypeOutput, TypeValue, TypeFunction, TypeExpression, TypeJQ:
		return true
	}
	return false
}

// Definition is a tagged field definition. Which fields are meaningful
// depends on Type.
type Definition struct {
	// Type selects how the field is resolved
	Type Type `yaml:"type" json:"type"`

	// Variable is the variable name (type=variable)
	Variable string `yaml:"variable,omitempty" json:"variable,omitempty"`

	// Path is a JSON pointer into the data or output (type=data, type=output)
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// OutputID is the producing component's id (type=output)
	OutputID string `yaml:"output_id,omitempty" json:"output_id,omitempty"`

	// Value is the literal (type=value)
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Function names a library function (type=function)
	Function string `yaml:"function,omitempty" json:"function,omitempty"`

	// Args are the function arguments (type=function)
	Args []*Definition `yaml:"args,omitempty" json:"args,omitempty"`

	// Expression is an expr-lang expression (type=expression)
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`

	// Query is a jq program (type=jq)
	Query string `yaml:"query,omitempty" json:"query,omitempty"`

	// Input optionally supplies the jq input; the run data is used otherwise (type=jq)
	Input *Definition `yaml:"input,omitempty" json:"input,omitempty"`

	// literal is Value with embedded field definitions decoded, filled in by
	// Validate (type=value)
	literal atomic.Pointer[any]
}

// String renders the definition the way error messages refer to it.
func (d *Definition) String() string {
	switch d.Type {
	case TypeVariable:
		return fmt.Sprintf("variable `%s`", d.Variable)
	case TypeData:
		return fmt.Sprintf("`%s` in data", d.Path)
	case TypeOutput:
		return fmt.Sprintf("`%s` in output `%s`", d.Path, d.OutputID)
	case TypeFunction:
		return fmt.Sprintf("function `%s`", d.Function)
	case TypeExpression:
		return fmt.Sprintf("expression `%s`", d.Expression)
	case TypeJQ:
		return fmt.Sprintf("jq `%s`", d.Query)
	default:
		return string(d.Type)
	}
}

// Validate checks the definition's shape recursively. It never looks at run
// state, so a valid definition can still fail to resolve. For literals it
// also decodes embedded field definitions once, and Resolve reuses them
// until the next Validate.
func (d *Definition) Validate() error {
	if d == nil {
		return &errors.ValidationError{Message: "field definition is missing"}
	}
	if d.Type == "" {
		return &errors.ValidationError{Field: "type", Message: "field type is required"}
	}
	if !d.Type.IsValid() {
		return &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown field type %q", d.Type),
			Suggestion: "use one of variable, data, output, value, function, expression, jq",
		}
	}

	switch d.Type {
	case TypeVariable:
		if d.Variable == "" {
			return &errors.ValidationError{Field: "variable", Message: "variable name is required"}
		}
	case TypeData:
		if err := value.ValidPointer(d.Path); err != nil {
			return &errors.ValidationError{Field: "path", Message: err.Error()}
		}
	case TypeOutput:
		if d.OutputID == "" {
			return &errors.ValidationError{Field: "output_id", Message: "output id is required"}
		}
		if err := value.ValidPointer(d.Path); err != nil {
			return &errors.ValidationError{Field: "path", Message: err.Error()}
		}
	case TypeValue:
		tree := compileLiteral(value.Normalize(d.Value))
		d.literal.Store(&tree)
	case TypeFunction:
		if _, ok := lookupFunction(d.Function); !ok {
			return &errors.ValidationError{
				Field:      "function",
				Message:    fmt.Sprintf("unknown function %q", d.Function),
				Suggestion: fmt.Sprintf("use one of %v", FunctionNames()),
			}
		}
		for i, arg := range d.Args {
			if err := arg.Validate(); err != nil {
				return errors.Wrapf(err, "argument %d of %s", i, d.Function)
			}
		}
	case TypeExpression:
		if err := expression.Default().Validate(d.Expression); err != nil {
			return err
		}
	case TypeJQ:
		if d.Query == "" {
			return &errors.ValidationError{Field: "query", Message: "jq query is required"}
		}
		if err := jq.Default().Validate(d.Query); err != nil {
			return &errors.ValidationError{Field: "query", Message: err.Error()}
		}
		if d.Input != nil {
			if err := d.Input.Validate(); err != nil {
				return errors.Wrap(err, "jq input")
			}
		}
	}
	return nil
}

// Dependencies returns the ids of every component whose output this
// definition reads, recursing through function arguments, jq inputs and
// fields embedded in literals. The result may contain duplicates.
func (d *Definition) Dependencies() []string {
	if d == nil {
		return nil
	}
	var deps []string
	switch d.Type {
	case TypeOutput:
		deps = append(deps, d.OutputID)
	case TypeFunction:
		for _, arg := range d.Args {
			deps = append(deps, arg.Dependencies()...)
		}
	case TypeJQ:
		deps = append(deps, d.Input.Dependencies()...)
	case TypeValue:
		for _, nested := range embedded(d.literalTree()) {
			deps = append(deps, nested.Dependencies()...)
		}
	}
	return deps
}

// Dependencies returns the sorted, de-duplicated producer ids across defs.
func Dependencies(defs ...*Definition) []string {
	var deps []string
	for _, d := range defs {
		deps = append(deps, d.Dependencies()...)
	}
	return value.SortedUnique(deps)
}

// literalTree returns the decoded literal, using the copy cached by Validate
// when there is one.
func (d *Definition) literalTree() any {
	if tree := d.literal.Load(); tree != nil {
		return *tree
	}
	return compileLiteral(value.Normalize(d.Value))
}

// compileLiteral copies a normalised literal, replacing every object that
// decodes into a valid field definition with that definition. Found
// definitions are not searched further.
func compileLiteral(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = compileLiteral(e)
		}
		return out
	case map[string]any:
		if def, ok := asDefinition(t); ok {
			return def
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = compileLiteral(e)
		}
		return out
	}
	return v
}

// embedded returns the field definitions found in a decoded literal, in
// key order.
func embedded(tree any) []*Definition {
	var found []*Definition
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case *Definition:
			found = append(found, t)
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, k := range value.SortedKeys(t) {
				walk(t[k])
			}
		}
	}
	walk(tree)
	return found
}

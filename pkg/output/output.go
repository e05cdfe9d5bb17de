// Package output assembles a workflow's final document from named field
// definitions.
package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/runctx"
	"github.com/tombee/ruline/pkg/value"
)

// Definition maps output keys to the fields that produce them.
type Definition map[string]*field.Definition

// Output is a built, immutable output assembler.
type Output struct {
	definition   Definition
	keys         []string
	dependencies []string
}

// Parse decodes an output definition from JSON or YAML and builds it.
func Parse(data []byte) (*Output, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ValidationError{
			Field:   "output",
			Message: fmt.Sprintf("failed to parse output: %s", err.Error()),
		}
	}
	return New(def)
}

// New builds an output assembler. A nil definition yields an empty document.
func New(def Definition) (*Output, error) {
	o := &Output{definition: def, keys: value.SortedKeys(def)}
	var fields []*field.Definition
	for _, key := range o.keys {
		f := def[key]
		if err := f.Validate(); err != nil {
			return nil, errors.Wrapf(err, "output %q", key)
		}
		fields = append(fields, f)
	}
	o.dependencies = field.Dependencies(fields...)
	return o, nil
}

// Keys returns the output keys in sorted order.
func (o *Output) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Dependencies returns the sorted ids of components whose outputs the
// document reads.
func (o *Output) Dependencies() []string {
	return append([]string(nil), o.dependencies...)
}

// Assemble resolves every key against the run context. The first failing
// key aborts assembly and no partial document is returned.
func (o *Output) Assemble(rc *runctx.Context) (map[string]any, error) {
	doc := make(map[string]any, len(o.keys))
	for _, key := range o.keys {
		v, err := field.Resolve(o.definition[key], rc)
		if err != nil {
			return nil, errors.Wrapf(err, "output %q", key)
		}
		doc[key] = v
	}
	return doc, nil
}

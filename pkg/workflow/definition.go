// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/pkg/action"
	"github.com/tombee/ruline/pkg/condition"
	"github.com/tombee/ruline/pkg/output"
	"github.com/tombee/ruline/pkg/value"
)

// ComponentType is the kind of a workflow component.
type ComponentType string

const (
	// ComponentCondition is a decision point.
	ComponentCondition ComponentType = "condition"
	// ComponentAction is a side-effecting step.
	ComponentAction ComponentType = "action"
)

// Definition is a workflow as declared in a document.
type Definition struct {
	// Name identifies the workflow in logs, spans and metrics
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Description is free text for humans
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Components maps component ids to their definitions
	Components map[string]*ComponentDefinition `yaml:"components" json:"components"`

	// Variables seeds every run's variable map
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Output describes the document a run returns
	Output output.Definition `yaml:"output,omitempty" json:"output,omitempty"`

	// order is the component declaration order when parsed from a document
	order []string
}

// ComponentDefinition declares one component. Exactly one of Condition and
// Action is set, matching Type.
type ComponentDefinition struct {
	Type      ComponentType
	Name      string
	Condition *condition.Definition
	Action    *action.Definition
}

type rawComponent struct {
	Type       ComponentType `yaml:"type"`
	Name       string        `yaml:"name"`
	Definition yaml.Node     `yaml:"definition"`
}

// UnmarshalYAML decodes a component, choosing the definition shape by type.
func (c *ComponentDefinition) UnmarshalYAML(node *yaml.Node) error {
	var raw rawComponent
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for _, key := range []string{"type", "name", "definition"} {
		if !hasKey(node, key) {
			return fmt.Errorf("component is missing %q", key)
		}
	}

	*c = ComponentDefinition{Type: raw.Type, Name: raw.Name}
	switch raw.Type {
	case ComponentCondition:
		var def condition.Definition
		if err := raw.Definition.Decode(&def); err != nil {
			return err
		}
		c.Condition = &def
	case ComponentAction:
		var def action.Definition
		if err := raw.Definition.Decode(&def); err != nil {
			return err
		}
		c.Action = &def
	default:
		return fmt.Errorf("unknown component type %q, expected condition or action", raw.Type)
	}
	return nil
}

// UnmarshalYAML decodes a workflow definition and records the order in
// which components were declared.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	type plain Definition
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if !hasKey(node, "components") {
		return errMissingComponents
	}
	*d = Definition(p)

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "components" {
			continue
		}
		components := node.Content[i+1]
		for j := 0; j+1 < len(components.Content); j += 2 {
			d.order = append(d.order, components.Content[j].Value)
		}
	}
	return nil
}

// Order returns component ids in construction order: declaration order
// for parsed definitions, ascending ids otherwise.
func (d *Definition) Order() []string {
	if len(d.order) == len(d.Components) {
		declared := true
		for _, id := range d.order {
			if _, ok := d.Components[id]; !ok {
				declared = false
				break
			}
		}
		if declared {
			return append([]string(nil), d.order...)
		}
	}
	ids := value.SortedKeys(d.Components)
	value.SortIDs(ids)
	return ids
}

var errMissingComponents = fmt.Errorf("workflow is missing %q", "components")

// ParseDefinition decodes a workflow definition from JSON or YAML.
func ParseDefinition(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", errMissingComponents)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	return &def, nil
}

// LoadDefinition reads and parses a workflow definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow definition: %w", err)
	}
	return ParseDefinition(data)
}

func hasKey(node *yaml.Node, key string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

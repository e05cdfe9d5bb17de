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

// Package condition implements decision points: expression trees of
// comparisons combined with and/or, evaluated against a run context to
// choose which components run next.
package condition

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/runctx"
	"github.com/tombee/ruline/pkg/value"
)

// Type is the kind of condition.
type Type string

const (
	// TypeBinary holds one expression tree and picks results or fallbacks.
	TypeBinary Type = "binary"
	// TypeDecision holds several trees, each with its own results.
	TypeDecision Type = "decision"
)

// Definition is the declared shape of a condition.
type Definition struct {
	// Type is "binary" or "decision"
	Type Type

	// Expression is the single tree of a binary condition
	Expression *Expression

	// Expressions are the trees of a decision condition
	Expressions []*Expression

	// Fallbacks run when the binary tree is false or no decision tree matched
	Fallbacks []string

	// Results run when the binary tree is true
	Results []string

	// DecisionResults maps decision tree root ids to the ids they select
	DecisionResults map[string][]string
}

type rawDefinition struct {
	Type        Type          `yaml:"type"`
	Expression  *Expression   `yaml:"expression"`
	Expressions []*Expression `yaml:"expressions"`
	Fallbacks   []string      `yaml:"fallbacks"`
	Results     yaml.Node     `yaml:"results"`
}

// UnmarshalYAML decodes a definition. The shape of "results" depends on
// the condition type: a list for binary, a map for decision.
func (d *Definition) UnmarshalYAML(node *yaml.Node) error {
	var raw rawDefinition
	if err := node.Decode(&raw); err != nil {
		return err
	}

	required := []string{"fallbacks", "results"}
	switch raw.Type {
	case TypeBinary:
		required = append(required, "expression")
	case TypeDecision:
		required = append(required, "expressions")
	}
	for _, key := range required {
		if !hasKey(node, key) {
			return fmt.Errorf("%s condition is missing %q", raw.Type, key)
		}
	}

	*d = Definition{
		Type:        raw.Type,
		Expression:  raw.Expression,
		Expressions: raw.Expressions,
		Fallbacks:   raw.Fallbacks,
	}

	if raw.Results.Kind == 0 {
		return nil
	}
	switch raw.Type {
	case TypeBinary:
		if err := raw.Results.Decode(&d.Results); err != nil {
			return fmt.Errorf("binary results must be a list of ids: %w", err)
		}
	case TypeDecision:
		if err := raw.Results.Decode(&d.DecisionResults); err != nil {
			return fmt.Errorf("decision results must map expression ids to lists of ids: %w", err)
		}
	}
	return nil
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

// node is one expression in the flattened tree table.
type node struct {
	expr     *Expression
	children []int
}

// Condition is a built, immutable condition. It is safe for concurrent use.
type Condition struct {
	definition   Definition
	nodes        []node
	roots        []int
	dependencies []string
	dependants   []string
}

// Parse decodes a condition definition from JSON or YAML and builds it.
func Parse(data []byte) (*Condition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &errors.ValidationError{
			Field:   "condition",
			Message: fmt.Sprintf("failed to parse condition: %s", err.Error()),
		}
	}
	return New(def)
}

// New builds a condition from its definition. Shape errors (unknown tags,
// operators or field kinds) are reported here. Structural rules about the
// number of children are only checked by Validate.
func New(def Definition) (*Condition, error) {
	c := &Condition{definition: def}

	switch def.Type {
	case TypeBinary:
		if def.Expression == nil {
			return nil, &errors.ValidationError{
				Field:   "expression",
				Message: "binary condition requires an expression",
			}
		}
		if err := def.Expression.validateShape(); err != nil {
			return nil, err
		}
		c.roots = append(c.roots, c.add(def.Expression))

	case TypeDecision:
		for _, expr := range def.Expressions {
			if err := expr.validateShape(); err != nil {
				return nil, err
			}
			c.roots = append(c.roots, c.add(expr))
		}

	default:
		return nil, &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown condition type %q", def.Type),
			Suggestion: "use binary or decision",
		}
	}

	var operands []*field.Definition
	for _, n := range c.nodes {
		operands = append(operands, n.expr.Operands...)
	}
	c.dependencies = field.Dependencies(operands...)

	targets := append([]string(nil), def.Fallbacks...)
	targets = append(targets, def.Results...)
	for _, ids := range def.DecisionResults {
		targets = append(targets, ids...)
	}
	c.dependants = value.SortedUnique(targets)

	return c, nil
}

// add appends expr and its subtree to the node table in preorder and
// returns expr's index.
func (c *Condition) add(expr *Expression) int {
	idx := len(c.nodes)
	c.nodes = append(c.nodes, node{expr: expr})
	for _, child := range expr.Expressions {
		childIdx := c.add(child)
		c.nodes[idx].children = append(c.nodes[idx].children, childIdx)
	}
	return idx
}

// Definition returns the definition the condition was built from.
func (c *Condition) Definition() Definition {
	return c.definition
}

// Dependencies returns the sorted ids of components whose outputs the
// condition's operands read.
func (c *Condition) Dependencies() []string {
	return append([]string(nil), c.dependencies...)
}

// Dependants returns the sorted ids of every component the condition may
// hand control to, from results and fallbacks alike.
func (c *Condition) Dependants() []string {
	return append([]string(nil), c.dependants...)
}

// Evaluate evaluates the condition and returns its continuation set: the
// ids that should still run.
func (c *Condition) Evaluate(rc *runctx.Context) ([]string, error) {
	switch c.definition.Type {
	case TypeBinary:
		passed, err := c.evalTree(rc, c.roots[0])
		if err != nil {
			return nil, err
		}
		if passed {
			return append([]string{}, c.definition.Results...), nil
		}
		return append([]string{}, c.definition.Fallbacks...), nil

	case TypeDecision:
		var next []string
		seen := make(map[string]bool)
		// every tree is evaluated, a match never short-circuits the rest
		for _, root := range c.roots {
			passed, err := c.evalTree(rc, root)
			if err != nil {
				return nil, err
			}
			if !passed {
				continue
			}
			id := c.nodes[root].expr.ID
			ids, ok := c.definition.DecisionResults[id]
			if !ok {
				return nil, &ExpressionError{ID: id, Reason: "no results declared for expression"}
			}
			for _, target := range ids {
				if !seen[target] {
					seen[target] = true
					next = append(next, target)
				}
			}
		}
		if len(next) == 0 {
			return append([]string{}, c.definition.Fallbacks...), nil
		}
		return next, nil
	}
	return nil, &ExpressionError{Reason: fmt.Sprintf("unknown condition type %q", c.definition.Type)}
}

// Validate checks the structural rules that construction allows to be
// broken: every logical node needs at least two children and a decision
// needs at least one expression.
func (c *Condition) Validate() error {
	if c.definition.Type == TypeDecision && len(c.roots) == 0 {
		return &ExpressionError{Reason: "decision requires at least one expression"}
	}
	for _, root := range c.roots {
		if err := c.validateTree(root); err != nil {
			return err
		}
	}
	return nil
}

// validateTree walks one tree depth-first.
func (c *Condition) validateTree(root int) error {
	stack := []int{root}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := c.nodes[idx]
		if n.expr.Type == ExpressionLogical && len(n.children) < 2 {
			return &LogicalChildrenError{ID: n.expr.ID, Count: len(n.children)}
		}
		for i := len(n.children) - 1; i >= 0; i-- {
			stack = append(stack, n.children[i])
		}
	}
	return nil
}

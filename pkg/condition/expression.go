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

package condition

import (
	"fmt"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
)

// ExpressionType distinguishes comparison leaves from logical nodes.
type ExpressionType string

const (
	ExpressionComparison ExpressionType = "comparison"
	ExpressionLogical    ExpressionType = "logical"
)

// LogicalOperator combines the results of a logical node's children.
type LogicalOperator string

const (
	And LogicalOperator = "and"
	Or  LogicalOperator = "or"
)

// Expression is one node of an expression tree. Comparisons carry an
// operator and operands; logical nodes carry an and/or operator and child
// expressions.
type Expression struct {
	// Type is "comparison" or "logical"
	Type ExpressionType `yaml:"type" json:"type"`

	// ID identifies the node; decision results are keyed by root ids
	ID string `yaml:"id" json:"id"`

	// Operator is a comparison Operator or a LogicalOperator depending on Type
	Operator string `yaml:"operator" json:"operator"`

	// Operands are resolved and compared (comparison only)
	Operands []*field.Definition `yaml:"operands,omitempty" json:"operands,omitempty"`

	// Expressions are the child nodes (logical only)
	Expressions []*Expression `yaml:"expressions,omitempty" json:"expressions,omitempty"`
}

// validateShape checks that the tree is well-typed. The number of children
// of a logical node is not checked here; that is Condition.Validate's job.
func (e *Expression) validateShape() error {
	if e == nil {
		return &errors.ValidationError{Field: "expression", Message: "expression is missing"}
	}
	if e.ID == "" {
		return &errors.ValidationError{Field: "id", Message: "expression id is required"}
	}

	switch e.Type {
	case ExpressionComparison:
		if !Operator(e.Operator).IsValid() {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("%s.operator", e.ID),
				Message:    fmt.Sprintf("unknown comparison operator %q", e.Operator),
				Suggestion: fmt.Sprintf("use one of %v", Operators),
			}
		}
		if len(e.Expressions) > 0 {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("%s.expressions", e.ID),
				Message: fmt.Sprintf("comparison %q must not have child expressions", e.ID),
			}
		}
		for i, operand := range e.Operands {
			if err := operand.Validate(); err != nil {
				return errors.Wrapf(err, "expression %s operand %d", e.ID, i)
			}
		}

	case ExpressionLogical:
		switch LogicalOperator(e.Operator) {
		case And, Or:
		default:
			return &errors.ValidationError{
				Field:      fmt.Sprintf("%s.operator", e.ID),
				Message:    fmt.Sprintf("unknown logical operator %q", e.Operator),
				Suggestion: "use and or or",
			}
		}
		if len(e.Operands) > 0 {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("%s.operands", e.ID),
				Message: fmt.Sprintf("logical expression %q must not have operands", e.ID),
			}
		}
		for _, child := range e.Expressions {
			if err := child.validateShape(); err != nil {
				return err
			}
		}

	default:
		return &errors.ValidationError{
			Field:      fmt.Sprintf("%s.type", e.ID),
			Message:    fmt.Sprintf("unknown expression type %q", e.Type),
			Suggestion: "use comparison or logical",
		}
	}
	return nil
}

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

	"github.com/tombee/ruline/pkg/value"
)

// OperandCountError reports an operator applied to the wrong number of
// operands.
type OperandCountError struct {
	Operator Operator
	Expected int
	// Minimum is true when Expected is a lower bound
	Minimum  bool
	Received int
}

// Error implements the error interface.
func (e *OperandCountError) Error() string {
	if e.Minimum {
		return fmt.Sprintf("%s: expected at least %d operands, got %d", e.Operator, e.Expected, e.Received)
	}
	return fmt.Sprintf("%s: expected %d operands, got %d", e.Operator, e.Expected, e.Received)
}

// ErrorType implements errors.ErrorClassifier.
func (e *OperandCountError) ErrorType() string { return "operand" }

// IsRetryable implements errors.ErrorClassifier.
func (e *OperandCountError) IsRetryable() bool { return false }

// OperandTypeError reports operands whose kinds the operator cannot compare.
type OperandTypeError struct {
	Operator Operator
	Kinds    []value.Kind
}

// Error implements the error interface.
func (e *OperandTypeError) Error() string {
	return fmt.Sprintf("%s: operand types invalid %v", e.Operator, e.Kinds)
}

// ErrorType implements errors.ErrorClassifier.
func (e *OperandTypeError) ErrorType() string { return "operand" }

// IsRetryable implements errors.ErrorClassifier.
func (e *OperandTypeError) IsRetryable() bool { return false }

// LogicalChildrenError is returned by Validate for a logical node with
// fewer than two children.
type LogicalChildrenError struct {
	ID    string
	Count int
}

// Error implements the error interface.
func (e *LogicalChildrenError) Error() string {
	return fmt.Sprintf("logical expression %q must have at least 2 children, has %d", e.ID, e.Count)
}

// ErrorType implements errors.ErrorClassifier.
func (e *LogicalChildrenError) ErrorType() string { return "validation" }

// IsRetryable implements errors.ErrorClassifier.
func (e *LogicalChildrenError) IsRetryable() bool { return false }

// ExpressionError reports an expression set that cannot produce an outcome:
// a decision without expressions, or a true expression with no declared
// results.
type ExpressionError struct {
	// ID is the root expression id, empty when not tied to one expression
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *ExpressionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("expression %q invalid: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("expression invalid: %s", e.Reason)
}

// ErrorType implements errors.ErrorClassifier.
func (e *ExpressionError) ErrorType() string { return "validation" }

// IsRetryable implements errors.ErrorClassifier.
func (e *ExpressionError) IsRetryable() bool { return false }

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
	"strings"

	"github.com/tombee/ruline/pkg/value"
)

// Operator is a comparison operator applied to resolved operands.
type Operator string

const (
	Equals             Operator = "equals"
	NotEquals          Operator = "not_equals"
	GreaterThan        Operator = "greater_than"
	GreaterThanOrEqual Operator = "greater_than_or_equal"
	LessThan           Operator = "less_than"
	LessThanOrEqual    Operator = "less_than_or_equal"
	Contains           Operator = "contains"
	NotContains        Operator = "not_contains"
	Exists             Operator = "exists"
	NotExists          Operator = "not_exists"
	Empty              Operator = "empty"
	NotEmpty           Operator = "not_empty"
)

// Operators lists every comparison operator.
var Operators = []Operator{
	Equals, NotEquals,
	GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual,
	Contains, NotContains,
	Exists, NotExists,
	Empty, NotEmpty,
}

// IsValid reports whether o is a known comparison operator.
func (o Operator) IsValid() bool {
	for _, known := range Operators {
		if o == known {
			return true
		}
	}
	return false
}

// Eval applies the operator to already-resolved, normalised operands.
func (o Operator) Eval(operands []any) (bool, error) {
	switch o {
	case Equals:
		return o.equals(operands)
	case NotEquals:
		return negate(o.equals(operands))
	case GreaterThan:
		return o.order(operands, func(c int) bool { return c > 0 })
	case GreaterThanOrEqual:
		return o.order(operands, func(c int) bool { return c >= 0 })
	case LessThan:
		return o.order(operands, func(c int) bool { return c < 0 })
	case LessThanOrEqual:
		return o.order(operands, func(c int) bool { return c <= 0 })
	case Contains:
		return o.contains(operands)
	case NotContains:
		return negate(o.contains(operands))
	case Exists:
		return o.exists(operands)
	case NotExists:
		return negate(o.exists(operands))
	case Empty:
		return o.empty(operands)
	case NotEmpty:
		return negate(o.empty(operands))
	}
	return false, &OperandTypeError{Operator: o}
}

func negate(ok bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (o Operator) exactly(operands []any, n int) error {
	if len(operands) != n {
		return &OperandCountError{Operator: o, Expected: n, Received: len(operands)}
	}
	return nil
}

func (o Operator) atLeast(operands []any, n int) error {
	if len(operands) < n {
		return &OperandCountError{Operator: o, Expected: n, Minimum: true, Received: len(operands)}
	}
	return nil
}

func (o Operator) typeError(operands ...any) error {
	kinds := make([]value.Kind, len(operands))
	for i, v := range operands {
		kinds[i] = value.KindOf(v)
	}
	return &OperandTypeError{Operator: o, Kinds: kinds}
}

// equals holds when every operand deep-equals the first.
func (o Operator) equals(operands []any) (bool, error) {
	if err := o.atLeast(operands, 2); err != nil {
		return false, err
	}
	for _, v := range operands[1:] {
		if !value.Equal(operands[0], v) {
			return false, nil
		}
	}
	return true, nil
}

// order compares two numbers, two strings (bytewise) or two arrays (by
// length) and hands the three-way result to holds.
func (o Operator) order(operands []any, holds func(int) bool) (bool, error) {
	if err := o.exactly(operands, 2); err != nil {
		return false, err
	}

	var c int
	switch left := operands[0].(type) {
	case float64:
		right, ok := operands[1].(float64)
		if !ok {
			return false, o.typeError(operands...)
		}
		switch {
		case left < right:
			c = -1
		case left > right:
			c = 1
		case left == right:
			c = 0
		default:
			// NaN is unordered
			return false, nil
		}
	case string:
		right, ok := operands[1].(string)
		if !ok {
			return false, o.typeError(operands...)
		}
		c = strings.Compare(left, right)
	case []any:
		right, ok := operands[1].([]any)
		if !ok {
			return false, o.typeError(operands...)
		}
		c = len(left) - len(right)
	default:
		return false, o.typeError(operands...)
	}
	return holds(c), nil
}

// contains holds when the second operand, an array, has an element equal
// to the first.
func (o Operator) contains(operands []any) (bool, error) {
	if err := o.exactly(operands, 2); err != nil {
		return false, err
	}
	list, ok := operands[1].([]any)
	if !ok {
		return false, o.typeError(operands...)
	}
	return value.Contains(list, operands[0]), nil
}

// exists holds when no operand is null.
func (o Operator) exists(operands []any) (bool, error) {
	if err := o.atLeast(operands, 1); err != nil {
		return false, err
	}
	for _, v := range operands {
		if v == nil {
			return false, nil
		}
	}
	return true, nil
}

// empty holds for null and for empty arrays, objects and strings.
func (o Operator) empty(operands []any) (bool, error) {
	if err := o.exactly(operands, 1); err != nil {
		return false, err
	}
	switch v := operands[0].(type) {
	case nil:
		return true, nil
	case []any:
		return len(v) == 0, nil
	case map[string]any:
		return len(v) == 0, nil
	case string:
		return v == "", nil
	}
	return false, o.typeError(operands...)
}

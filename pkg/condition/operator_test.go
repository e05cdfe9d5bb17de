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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/value"
)

func TestOperator_Eval(t *testing.T) {
	obj := map[string]any{"k": "v"}

	tests := []struct {
		name     string
		op       Operator
		operands []any
		want     bool
	}{
		{"equals numbers", Equals, []any{1.0, 1.0, 1.0}, true},
		{"equals mixed", Equals, []any{1.0, 1.0, 2.0}, false},
		{"equals objects", Equals, []any{obj, map[string]any{"k": "v"}}, true},
		{"equals null", Equals, []any{nil, nil}, true},
		{"not equals", NotEquals, []any{"a", "b"}, true},
		{"not equals same", NotEquals, []any{[]any{1.0}, []any{1.0}}, false},

		{"greater than integers", GreaterThan, []any{50.0, 40.0}, true},
		{"greater than decimals", GreaterThan, []any{0.00401, 0.004}, true},
		{"greater than strings", GreaterThan, []any{"abcd", "abcc"}, true},
		{"greater than array length", GreaterThan, []any{[]any{"foo", "bar"}, []any{"foo"}}, true},
		{"greater than equal values", GreaterThan, []any{3.0, 3.0}, false},
		{"greater than or equal", GreaterThanOrEqual, []any{3.0, 3.0}, true},
		{"greater than or equal strings", GreaterThanOrEqual, []any{"a", "b"}, false},
		{"less than", LessThan, []any{-1.0, 0.0}, true},
		{"less than arrays", LessThan, []any{[]any{}, []any{1.0}}, true},
		{"less than or equal", LessThanOrEqual, []any{"abc", "abc"}, true},
		{"less than or equal false", LessThanOrEqual, []any{2.0, 1.0}, false},

		{"contains", Contains, []any{"red", []any{"blue", "red"}}, true},
		{"contains object", Contains, []any{obj, []any{map[string]any{"k": "v"}}}, true},
		{"contains missing", Contains, []any{"green", []any{"blue", "red"}}, false},
		{"not contains", NotContains, []any{"green", []any{}}, true},

		{"exists", Exists, []any{1.0, "x", false}, true},
		{"exists with null", Exists, []any{1.0, nil}, false},
		{"not exists", NotExists, []any{nil}, true},
		{"not exists present", NotExists, []any{0.0}, false},

		{"empty null", Empty, []any{nil}, true},
		{"empty string", Empty, []any{""}, true},
		{"empty array", Empty, []any{[]any{}}, true},
		{"empty object", Empty, []any{map[string]any{}}, true},
		{"empty non-empty", Empty, []any{"x"}, false},
		{"not empty", NotEmpty, []any{[]any{nil}}, true},
		{"not empty null", NotEmpty, []any{nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Eval(tt.operands)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOperator_EvalCountErrors(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		operands []any
		minimum  bool
		expected int
	}{
		{"equals needs two", Equals, []any{1.0}, true, 2},
		{"not equals needs two", NotEquals, nil, true, 2},
		{"greater than exactly two", GreaterThan, []any{1.0, 2.0, 3.0}, false, 2},
		{"less than empty", LessThan, nil, false, 2},
		{"contains exactly two", Contains, []any{1.0}, false, 2},
		{"exists needs one", Exists, nil, true, 1},
		{"not exists needs one", NotExists, []any{}, true, 1},
		{"empty exactly one", Empty, []any{nil, nil}, false, 1},
		{"not empty exactly one", NotEmpty, nil, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Eval(tt.operands)

			var countErr *OperandCountError
			require.True(t, errors.As(err, &countErr), "got %v", err)
			assert.Equal(t, tt.minimum, countErr.Minimum)
			assert.Equal(t, tt.expected, countErr.Expected)
			assert.Equal(t, len(tt.operands), countErr.Received)
			assert.Equal(t, tt.op, countErr.Operator)
		})
	}
}

func TestOperator_EvalTypeErrors(t *testing.T) {
	tests := []struct {
		name     string
		op       Operator
		operands []any
	}{
		{"ordering mixed kinds", GreaterThan, []any{1.0, "1"}},
		{"ordering booleans", GreaterThanOrEqual, []any{true, false}},
		{"ordering objects", LessThan, []any{map[string]any{}, map[string]any{}}},
		{"ordering nulls", LessThanOrEqual, []any{nil, nil}},
		{"ordering array and number", GreaterThan, []any{[]any{}, 1.0}},
		{"contains non-array", Contains, []any{"a", "abc"}},
		{"not contains non-array", NotContains, []any{"a", nil}},
		{"empty number", Empty, []any{0.0}},
		{"not empty bool", NotEmpty, []any{false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op.Eval(tt.operands)

			var typeErr *OperandTypeError
			require.True(t, errors.As(err, &typeErr), "got %v", err)
			assert.Len(t, typeErr.Kinds, len(tt.operands))
			assert.Equal(t, value.KindOf(tt.operands[0]), typeErr.Kinds[0])
		})
	}
}

func TestOperandTypeError_Message(t *testing.T) {
	_, err := GreaterThan.Eval([]any{1.0, "x"})
	require.Error(t, err)
	assert.Equal(t, "greater_than: operand types invalid [number string]", err.Error())

	_, err = Equals.Eval([]any{1.0})
	assert.Equal(t, "equals: expected at least 2 operands, got 1", err.Error())

	_, err = Empty.Eval(nil)
	assert.Equal(t, "empty: expected 1 operands, got 0", err.Error())
}

func TestOperator_IsValid(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, op.IsValid(), string(op))
	}
	assert.False(t, Operator("between").IsValid())
}

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
	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/runctx"
)

type frameKind int

const (
	// descend visits a node for the first time
	descend frameKind = iota
	// combine closes a logical node once all its children produced results
	combine
)

type frame struct {
	kind frameKind
	node int
}

// evalTree evaluates the tree rooted at root in postorder with an explicit
// frame stack. Every leaf is evaluated, there is no short-circuiting, and
// the first operand resolution or operator failure aborts the walk.
func (c *Condition) evalTree(rc *runctx.Context, root int) (bool, error) {
	work := []frame{{kind: descend, node: root}}
	// accumulators of the open logical nodes, innermost last
	var open [][]bool
	var result bool

	produce := func(b bool) {
		if len(open) == 0 {
			result = b
			return
		}
		open[len(open)-1] = append(open[len(open)-1], b)
	}

	for len(work) > 0 {
		f := work[len(work)-1]
		work = work[:len(work)-1]
		n := c.nodes[f.node]

		switch f.kind {
		case descend:
			if n.expr.Type == ExpressionComparison {
				ok, err := c.compare(n.expr, rc)
				if err != nil {
					return false, err
				}
				produce(ok)
				continue
			}
			open = append(open, make([]bool, 0, len(n.children)))
			work = append(work, frame{kind: combine, node: f.node})
			for i := len(n.children) - 1; i >= 0; i-- {
				work = append(work, frame{kind: descend, node: n.children[i]})
			}

		case combine:
			results := open[len(open)-1]
			open = open[:len(open)-1]
			produce(combineResults(LogicalOperator(n.expr.Operator), results))
		}
	}
	return result, nil
}

// compare resolves a comparison's operands and applies its operator.
func (c *Condition) compare(expr *Expression, rc *runctx.Context) (bool, error) {
	operands := make([]any, len(expr.Operands))
	for i, operand := range expr.Operands {
		v, err := field.Resolve(operand, rc)
		if err != nil {
			return false, errors.Wrapf(err, "expression %s operand %d", expr.ID, i)
		}
		operands[i] = v
	}
	ok, err := Operator(expr.Operator).Eval(operands)
	if err != nil {
		return false, errors.Wrapf(err, "expression %s", expr.ID)
	}
	return ok, nil
}

// combineResults folds child results: and is vacuously true, or is
// vacuously false.
func combineResults(op LogicalOperator, results []bool) bool {
	switch op {
	case And:
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case Or:
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	return false
}

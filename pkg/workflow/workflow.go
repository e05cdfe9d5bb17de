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

// Package workflow links conditions and actions into a directed graph and
// runs it breadth-first, pruning the branches conditions rule out.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/ruline/internal/log"
	"github.com/tombee/ruline/pkg/action"
	"github.com/tombee/ruline/pkg/condition"
	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/output"
	"github.com/tombee/ruline/pkg/value"
)

const instrumentationName = "github.com/tombee/ruline/pkg/workflow"

// outputID names the output document in link errors.
const outputID = "output"

// Metrics receives run and component measurements.
type Metrics interface {
	// RecordRun is called once per run with status "success" or "failed"
	RecordRun(ctx context.Context, workflow, status string, duration time.Duration)

	// RecordComponent is called after each executed component
	RecordComponent(ctx context.Context, workflow, kind, status string, duration time.Duration)

	// RecordPruned is called when a condition removes pending components
	RecordPruned(ctx context.Context, workflow string, count int)
}

type component struct {
	id        string
	name      string
	kind      ComponentType
	condition *condition.Condition
	action    *action.Action
}

// Workflow is a built component graph. Once configured it is immutable and
// safe for concurrent Process calls.
type Workflow struct {
	name       string
	components map[string]*component
	order      []string
	variables  map[string]any
	output     *output.Output
	graph      *graph

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics Metrics
}

// Build parses a definition document and builds the workflow.
func Build(data []byte) (*Workflow, error) {
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return New(def)
}

// New builds every component, links the graph and attaches components that
// nothing points at to the root. Output fields may only read declared
// components. Structural checks beyond missing references are left to
// Validate.
func New(def *Definition) (*Workflow, error) {
	if def == nil {
		return nil, &errors.ValidationError{Field: "workflow", Message: "workflow definition is missing"}
	}

	w := &Workflow{
		name:       def.Name,
		components: make(map[string]*component, len(def.Components)),
		order:      def.Order(),
		variables:  make(map[string]any, len(def.Variables)),
		graph:      newGraph(),
		logger:     log.Discard(),
		tracer:     otel.Tracer(instrumentationName),
	}
	for k, v := range def.Variables {
		w.variables[k] = value.Normalize(v)
	}

	for _, id := range w.order {
		c, err := buildComponent(id, def.Components[id])
		if err != nil {
			return nil, &errors.ComponentError{ComponentID: id, Phase: "build", Cause: err}
		}
		w.components[id] = c
		w.graph.addNode(id)
	}

	for _, id := range w.order {
		if err := w.link(w.components[id]); err != nil {
			return nil, err
		}
	}
	w.graph.linkEntries()

	out, err := output.New(def.Output)
	if err != nil {
		return nil, errors.Wrap(err, "building output")
	}
	for _, dep := range out.Dependencies() {
		if dep == rootID || !w.graph.has(dep) {
			return nil, &LinkError{ComponentID: outputID, Ref: dep, Kind: LinkDependency}
		}
	}
	w.output = out

	return w, nil
}

func buildComponent(id string, def *ComponentDefinition) (*component, error) {
	if id == rootID {
		return nil, &errors.ValidationError{Field: "components", Message: "component id must not be empty"}
	}
	if def == nil {
		return nil, &errors.ValidationError{Field: "definition", Message: "component definition is missing"}
	}
	if def.Name == "" {
		return nil, &errors.ValidationError{Field: "name", Message: "component name is required"}
	}

	c := &component{id: id, name: def.Name, kind: def.Type}
	switch def.Type {
	case ComponentCondition:
		if def.Condition == nil {
			return nil, &errors.ValidationError{Field: "definition", Message: "condition definition is missing"}
		}
		cond, err := condition.New(*def.Condition)
		if err != nil {
			return nil, err
		}
		c.condition = cond
	case ComponentAction:
		if def.Action == nil {
			return nil, &errors.ValidationError{Field: "definition", Message: "action definition is missing"}
		}
		act, err := action.New(*def.Action)
		if err != nil {
			return nil, err
		}
		c.action = act
	default:
		return nil, &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown component type %q", def.Type),
			Suggestion: "use condition or action",
		}
	}
	return c, nil
}

// link adds the component's data edges and, for conditions, its control
// edges.
func (w *Workflow) link(c *component) error {
	var deps, dependants []string
	switch c.kind {
	case ComponentCondition:
		deps = c.condition.Dependencies()
		dependants = c.condition.Dependants()
	case ComponentAction:
		deps = c.action.Dependencies()
	}

	for _, dep := range deps {
		if dep == rootID || !w.graph.has(dep) {
			return &LinkError{ComponentID: c.id, Ref: dep, Kind: LinkDependency}
		}
		w.graph.addEdge(dep, c.id, EdgeData)
	}
	for _, target := range dependants {
		if target == rootID || !w.graph.has(target) {
			return &LinkError{ComponentID: c.id, Ref: target, Kind: LinkDependant}
		}
		w.graph.addEdge(c.id, target, EdgeControl)
	}
	return nil
}

// WithLogger sets the logger runs report to.
func (w *Workflow) WithLogger(logger *slog.Logger) *Workflow {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// WithTracer sets the tracer runs create spans with.
func (w *Workflow) WithTracer(tracer trace.Tracer) *Workflow {
	if tracer != nil {
		w.tracer = tracer
	}
	return w
}

// WithMetrics sets the metrics sink runs report to.
func (w *Workflow) WithMetrics(metrics Metrics) *Workflow {
	w.metrics = metrics
	return w
}

// Name returns the workflow name, which may be empty.
func (w *Workflow) Name() string {
	return w.name
}

// Components returns the component ids in construction order.
func (w *Workflow) Components() []string {
	return append([]string(nil), w.order...)
}

// Condition returns the built condition with the given id.
func (w *Workflow) Condition(id string) (*condition.Condition, bool) {
	c, ok := w.components[id]
	if !ok || c.condition == nil {
		return nil, false
	}
	return c.condition, true
}

// Action returns the built action with the given id.
func (w *Workflow) Action(id string) (*action.Action, bool) {
	c, ok := w.components[id]
	if !ok || c.action == nil {
		return nil, false
	}
	return c.action, true
}

// Edges returns every edge of the component graph, grouped by source in
// construction order.
func (w *Workflow) Edges() []Edge {
	return w.graph.edges()
}

// Validate rejects cycles and re-runs every condition's own validation in
// construction order.
func (w *Workflow) Validate() error {
	if err := w.graph.detectCycle(); err != nil {
		return err
	}
	for _, id := range w.order {
		c := w.components[id]
		if c.condition == nil {
			continue
		}
		if err := c.condition.Validate(); err != nil {
			return &errors.ComponentError{ComponentID: id, Phase: "validate", Cause: err}
		}
	}
	return nil
}

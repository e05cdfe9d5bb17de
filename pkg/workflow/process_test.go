package workflow

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tombee/ruline/internal/log"
	"github.com/tombee/ruline/pkg/condition"
	"github.com/tombee/ruline/pkg/errors"
)

func TestProcess_Colors(t *testing.T) {
	w := loadWorkflow(t, "colors.json")
	require.NoError(t, w.Validate())

	out, report, err := w.Trace(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"color": "green"}, out)
	assert.Equal(t, []string{"1", "2", "4", "5", "6", "7"}, report.Visited)
	assert.Equal(t, []string{"7"}, report.Executed)
	assert.Equal(t, []string{"3", "8"}, report.Pruned)
	assert.Equal(t, []Decision{
		{ComponentID: "1", Next: []string{"4"}},
		{ComponentID: "2", Next: []string{"3"}},
		{ComponentID: "4", Next: []string{"5", "6"}},
		{ComponentID: "5", Next: []string{"6"}},
		{ComponentID: "6", Next: []string{"7"}},
	}, report.Decisions)
	assert.NotEmpty(t, report.RunID)
}

func TestProcess_PrunedComponentNeverRuns(t *testing.T) {
	w, err := Build([]byte(`{"components": {
		"A": {"type": "condition", "name": "A", "definition": {
			"type": "binary", "fallbacks": [], "results": ["B"],
			"expression": {"id": "1", "type": "comparison", "operator": "equals", "operands": [
				{"type": "data", "path": "/go"}, {"type": "value", "value": true}
			]}}},
		"B": {"type": "action", "name": "B", "definition": {
			"type": "set_variable", "variable": "ran", "value": {"type": "value", "value": true}}}
	}}`))
	require.NoError(t, err)

	rc := w.NewContext(context.Background(), map[string]any{"go": false})
	_, report, err := w.Run(rc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, report.Pruned)
	assert.Empty(t, report.Executed)
	_, ran := rc.Variable("ran")
	assert.False(t, ran)

	rc = w.NewContext(context.Background(), map[string]any{"go": true})
	_, report, err = w.Run(rc)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, report.Executed)
	got, _ := rc.Variable("ran")
	assert.Equal(t, true, got)
}

// binaryJSON renders a binary condition component that always takes the
// given branch.
func binaryJSON(id string, pass bool, results ...string) string {
	return fmt.Sprintf(`%q: {"type": "condition", "name": %q, "definition": {
		"type": "binary", "fallbacks": [], "results": %s,
		"expression": {"id": "1", "type": "comparison", "operator": "equals", "operands": [
			{"type": "value", "value": %t}, {"type": "value", "value": true}
		]}}}`, id, id, jsonList(results), pass)
}

func jsonList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

const markerAction = `"B": {"type": "action", "name": "B", "definition": {
	"type": "set_variable", "variable": "ran", "value": {"type": "value", "value": true}}}`

func buildComponents(t *testing.T, components ...string) *Workflow {
	t.Helper()
	w, err := Build([]byte(`{"components": {` + strings.Join(components, ",\n") + `}}`))
	require.NoError(t, err)
	require.NoError(t, w.Validate())
	return w
}

func TestProcess_DequeuedComponentIsNotPruned(t *testing.T) {
	// B runs before Z fails, so Z has nothing left to prune.
	w := buildComponents(t,
		binaryJSON("A", true, "B"),
		binaryJSON("Y", true, "Z"),
		binaryJSON("Z", false, "B"),
		markerAction,
	)

	rc := w.NewContext(context.Background(), nil)
	_, report, err := w.Run(rc)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "Y", "B", "Z"}, report.Visited)
	assert.Equal(t, []string{"B"}, report.Executed)
	assert.Empty(t, report.Pruned)
	got, ok := rc.Variable("ran")
	require.True(t, ok)
	assert.Equal(t, true, got)
}

func TestProcess_DeclarationOrderDecidesOutcome(t *testing.T) {
	tests := []struct {
		name       string
		components []string
		visited    []string
		executed   []string
		pruned     []string
	}{
		{
			name: "passing branch declared first",
			components: []string{
				binaryJSON("A", true, "B"),
				binaryJSON("Y", true, "Z"),
				binaryJSON("Z", false, "B"),
				markerAction,
			},
			visited:  []string{"A", "Y", "B", "Z"},
			executed: []string{"B"},
		},
		{
			name: "failing branch declared first",
			components: []string{
				binaryJSON("Y", true, "Z"),
				binaryJSON("Z", false, "B"),
				binaryJSON("A", true, "B"),
				markerAction,
			},
			visited: []string{"Y", "A", "Z"},
			pruned:  []string{"B"},
		},
		{
			name: "shared dependant, pass then fail",
			components: []string{
				binaryJSON("P", true, "B"),
				binaryJSON("N", false, "B"),
				markerAction,
			},
			visited: []string{"P", "N"},
			pruned:  []string{"B"},
		},
		{
			name: "shared dependant, fail then pass",
			components: []string{
				binaryJSON("N", false, "B"),
				binaryJSON("P", true, "B"),
				markerAction,
			},
			visited: []string{"N", "P"},
			pruned:  []string{"B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := buildComponents(t, tt.components...)

			_, report, err := w.Trace(context.Background(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.visited, report.Visited)
			assert.ElementsMatch(t, tt.executed, report.Executed)
			assert.ElementsMatch(t, tt.pruned, report.Pruned)
		})
	}
}

func orderInput(quantity, price float64, tier string, tags ...string) map[string]any {
	list := make([]any, len(tags))
	for i, tag := range tags {
		list[i] = tag
	}
	return map[string]any{
		"quantity":   quantity,
		"unit_price": price,
		"customer": map[string]any{
			"name": "Ada",
			"tier": tier,
			"tags": list,
		},
	}
}

func TestProcess_Orders(t *testing.T) {
	w := loadWorkflow(t, "orders.yaml")
	require.NoError(t, w.Validate())

	tests := []struct {
		name     string
		input    map[string]any
		tier     string
		executed []string
		pruned   []string
		audited  any
	}{
		{
			name:     "large order",
			input:    orderInput(20, 100, "silver"),
			tier:     "freight",
			executed: []string{"audit", "freight"},
			pruned:   []string{"express", "standard"},
			audited:  "Ada:20",
		},
		{
			name:     "vip tag",
			input:    orderInput(1, 10, "silver", "vip"),
			tier:     "express",
			executed: []string{"audit", "express"},
			pruned:   []string{"freight", "standard"},
			audited:  "Ada:1",
		},
		{
			name:     "gold tier",
			input:    orderInput(1, 10, "gold"),
			tier:     "express",
			executed: []string{"audit", "express"},
			pruned:   []string{"freight", "standard"},
			audited:  "Ada:1",
		},
		{
			name:     "neither",
			input:    orderInput(2, 10, "silver", "new"),
			tier:     "standard",
			executed: []string{"standard"},
			pruned:   []string{"audit", "express", "freight"},
		},
		{
			name:     "large vip",
			input:    orderInput(50, 30, "gold", "vip"),
			tier:     "freight",
			executed: []string{"audit", "express", "freight"},
			pruned:   []string{"standard"},
			audited:  "Ada:50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := w.NewContext(context.Background(), tt.input)
			out, report, err := w.Run(rc)
			require.NoError(t, err)

			assert.Equal(t, map[string]any{"tier": tt.tier, "customer": "ADA"}, out)
			assert.Equal(t, tt.executed, report.Executed)
			assert.Equal(t, tt.pruned, report.Pruned)

			audited, ok := rc.Variable("audited")
			if tt.audited == nil {
				assert.False(t, ok)
				return
			}
			assert.Equal(t, tt.audited, audited)
		})
	}
}

func TestProcess_Concurrent(t *testing.T) {
	w := loadWorkflow(t, "orders.yaml")

	var wg sync.WaitGroup
	errs := make([]error, 32)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			qty := float64(i%2*100 + 1)
			out, err := w.Process(context.Background(), orderInput(qty, 10, "silver"))
			if err != nil {
				errs[i] = err
				return
			}
			want := "standard"
			if i%2 == 1 {
				want = "freight"
			}
			if out["tier"] != want {
				errs[i] = fmt.Errorf("run %d: tier %v, want %s", i, out["tier"], want)
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestProcess_VariablesAreIsolatedPerRun(t *testing.T) {
	w := loadWorkflow(t, "orders.yaml")

	_, err := w.Process(context.Background(), orderInput(20, 100, "silver"))
	require.NoError(t, err)

	rc := w.NewContext(context.Background(), nil)
	tier, _ := rc.Variable("tier")
	assert.Equal(t, "standard", tier)
	_, ok := rc.Variable("audited")
	assert.False(t, ok)
}

func TestProcess_Cancelled(t *testing.T) {
	w := loadWorkflow(t, "colors.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := w.Process(ctx, nil)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProcess_RuntimeErrorAborts(t *testing.T) {
	w, err := Build([]byte(`{"components": {
		"check": {"type": "condition", "name": "check", "definition": {
			"type": "binary", "fallbacks": [], "results": ["set"],
			"expression": {"id": "1", "type": "comparison", "operator": "greater_than", "operands": [
				{"type": "data", "path": "/name"}, {"type": "value", "value": 3}
			]}}},
		"set": {"type": "action", "name": "set", "definition": {
			"type": "set_variable", "variable": "x", "value": {"type": "value", "value": 1}}}
	}, "output": {"x": {"type": "variable", "variable": "x"}}}`))
	require.NoError(t, err)

	out, report, err := w.Trace(context.Background(), map[string]any{"name": "ada"})
	require.Error(t, err)
	assert.Nil(t, out)

	var ce *errors.ComponentError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "check", ce.ComponentID)
	assert.Equal(t, "run", ce.Phase)

	var ote *condition.OperandTypeError
	assert.True(t, errors.As(err, &ote))

	require.NotNil(t, report)
	assert.Equal(t, []string{"check"}, report.Visited)
	assert.Empty(t, report.Executed)
}

func TestProcess_MissingOutputFieldFails(t *testing.T) {
	w, err := Build([]byte(`{"components": {}, "output": {"x": {"type": "variable", "variable": "x"}}}`))
	require.NoError(t, err)

	out, err := w.Process(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Contains(t, err.Error(), "assembling output")
}

func TestProcess_EmptyWorkflow(t *testing.T) {
	w, err := Build([]byte(`{"components": {}}`))
	require.NoError(t, err)
	require.NoError(t, w.Validate())

	out, report, err := w.Trace(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, out)
	assert.Empty(t, report.Visited)
}

const seededWorkflow = `{"components": {
	"check": {"type": "condition", "name": "check", "definition": {
		"type": "binary", "fallbacks": [], "results": ["after"],
		"expression": {"id": "1", "type": "comparison", "operator": "equals", "operands": [
			{"type": "output", "output_id": "score", "path": "/value"},
			{"type": "value", "value": 1}
		]}}},
	"score": {"type": "action", "name": "score", "definition": {
		"type": "set_variable", "variable": "s", "value": {"type": "value", "value": 1}}},
	"after": {"type": "action", "name": "after", "definition": {
		"type": "set_variable", "variable": "t", "value": {"type": "output", "output_id": "score", "path": ""}}}
}, "output": {"t": {"type": "variable", "variable": "t"}}}`

func TestRun_SeededOutputs(t *testing.T) {
	w, err := Build([]byte(seededWorkflow))
	require.NoError(t, err)

	rc := w.NewContext(context.Background(), nil)
	rc.SetOutput("score", map[string]any{"value": 1})
	out, report, err := w.Run(rc)
	require.NoError(t, err)

	assert.Equal(t, []string{"score", "check", "after"}, report.Visited)
	assert.Equal(t, map[string]any{"t": map[string]any{"value": float64(1)}}, out)

	rc = w.NewContext(context.Background(), nil)
	rc.SetOutput("score", map[string]any{"value": 2})
	_, report, err = w.Run(rc)
	require.Error(t, err)
	assert.Equal(t, []string{"after"}, report.Pruned)
	assert.Contains(t, err.Error(), "assembling output")
}

type runRecord struct {
	workflow string
	status   string
}

type fakeMetrics struct {
	mu         sync.Mutex
	runs       []runRecord
	components map[string]int
	pruned     int
}

func (m *fakeMetrics) RecordRun(_ context.Context, workflow, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, runRecord{workflow: workflow, status: status})
}

func (m *fakeMetrics) RecordComponent(_ context.Context, _, kind, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.components == nil {
		m.components = make(map[string]int)
	}
	m.components[kind+"/"+status]++
}

func (m *fakeMetrics) RecordPruned(_ context.Context, _ string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned += count
}

func TestRun_Instrumentation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var buf bytes.Buffer
	logger := log.New(&log.Config{Level: "trace", Format: log.FormatJSON, Output: &buf})
	metrics := &fakeMetrics{}

	w := loadWorkflow(t, "colors.json").
		WithTracer(tp.Tracer("test")).
		WithLogger(logger).
		WithMetrics(metrics)

	_, report, err := w.Trace(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, []runRecord{{workflow: "colors", status: "success"}}, metrics.runs)
	assert.Equal(t, map[string]int{"condition/success": 5, "action/success": 1}, metrics.components)
	assert.Equal(t, 2, metrics.pruned)

	spans := recorder.Ended()
	require.Len(t, spans, 7)
	root := spans[len(spans)-1]
	assert.Equal(t, "workflow.run: colors", root.Name())
	for _, s := range spans[:len(spans)-1] {
		assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
	}
	assert.Equal(t, "component: 1", spans[0].Name())

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"workflow run started"`)
	assert.Contains(t, logs, `"msg":"component executed"`)
	assert.Contains(t, logs, `"msg":"pruned pending components"`)
	assert.Contains(t, logs, report.RunID)
}

func TestRun_FailedRunIsRecorded(t *testing.T) {
	metrics := &fakeMetrics{}
	w, err := Build([]byte(`{"name": "broken", "components": {}, "output": {"x": {"type": "variable", "variable": "x"}}}`))
	require.NoError(t, err)
	w.WithMetrics(metrics)

	_, err = w.Process(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, []runRecord{{workflow: "broken", status: "failed"}}, metrics.runs)
}

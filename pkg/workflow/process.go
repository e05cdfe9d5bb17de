package workflow

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/ruline/internal/log"
	"github.com/tombee/ruline/internal/tracing"
	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/runctx"
)

// Decision records the continuation set a condition produced.
type Decision struct {
	ComponentID string   `json:"component_id"`
	Next        []string `json:"next"`
}

// RunReport describes how a run traversed the graph.
type RunReport struct {
	RunID string `json:"run_id"`

	// Visited lists every component taken off the queue, in order
	Visited []string `json:"visited"`

	// Executed lists the actions that ran, in order
	Executed []string `json:"executed"`

	// Decisions lists condition outcomes, in order
	Decisions []Decision `json:"decisions"`

	// Pruned lists components removed from the queue before they ran
	Pruned []string `json:"pruned"`

	Duration time.Duration `json:"duration"`
}

// NewContext creates a run context seeded with the workflow's variables.
func (w *Workflow) NewContext(ctx context.Context, input any) *runctx.Context {
	return runctx.New(ctx, input, w.variables)
}

// Process runs the workflow against input and returns the assembled output.
// Any failure aborts the run and no partial output is returned.
func (w *Workflow) Process(ctx context.Context, input any) (map[string]any, error) {
	out, _, err := w.Run(w.NewContext(ctx, input))
	return out, err
}

// Trace is Process that also reports the traversal.
func (w *Workflow) Trace(ctx context.Context, input any) (map[string]any, *RunReport, error) {
	return w.Run(w.NewContext(ctx, input))
}

// Run executes the workflow against a prepared run context. Callers use it
// to seed outputs published by steps outside the workflow. The report is
// returned even when the run fails.
func (w *Workflow) Run(rc *runctx.Context) (map[string]any, *RunReport, error) {
	start := time.Now()
	report := &RunReport{
		RunID:     uuid.NewString(),
		Visited:   []string{},
		Executed:  []string{},
		Decisions: []Decision{},
		Pruned:    []string{},
	}

	ctx, span := tracing.StartRun(rc.Context(), w.tracer, report.RunID, w.name)
	defer span.End()
	logger := log.WithRunContext(w.logger, report.RunID, w.name)
	logger.Debug("workflow run started", slog.Int("components", len(w.order)))

	out, err := w.traverse(ctx, rc, logger, report)

	report.Duration = time.Since(start)
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		logger.Debug("workflow run failed", log.Error(err), log.Duration("duration", report.Duration.Milliseconds()))
	} else {
		span.SetOK()
		logger.Debug("workflow run completed",
			slog.Int("visited", len(report.Visited)),
			slog.Int("pruned", len(report.Pruned)),
			log.Duration("duration", report.Duration.Milliseconds()))
	}
	span.SetAttributes(map[string]any{
		"workflow.visited": len(report.Visited),
		"workflow.pruned":  len(report.Pruned),
	})
	if w.metrics != nil {
		w.metrics.RecordRun(ctx, w.name, status, report.Duration)
	}

	if err != nil {
		return nil, report, err
	}
	return out, report, nil
}

// traverse walks the graph breadth-first from the root. A dequeued node's
// undiscovered successors are queued before the node runs, and a node is
// never queued twice.
func (w *Workflow) traverse(ctx context.Context, rc *runctx.Context, logger *slog.Logger, report *RunReport) (map[string]any, error) {
	queue := []string{rootID}
	discovered := map[string]bool{rootID: true}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "workflow run interrupted")
		}

		id := queue[0]
		queue = queue[1:]
		for _, next := range w.graph.successors(id) {
			if !discovered[next] {
				discovered[next] = true
				queue = append(queue, next)
			}
		}
		if id == rootID {
			continue
		}

		report.Visited = append(report.Visited, id)
		c := w.components[id]
		next, err := w.execute(ctx, rc, logger, c)
		if err != nil {
			return nil, &errors.ComponentError{ComponentID: id, Phase: "run", Cause: err}
		}

		switch c.kind {
		case ComponentAction:
			report.Executed = append(report.Executed, id)
		case ComponentCondition:
			report.Decisions = append(report.Decisions, Decision{ComponentID: id, Next: next})
			var pruned []string
			queue, pruned = prune(queue, c.condition.Dependants(), next)
			if len(pruned) > 0 {
				report.Pruned = append(report.Pruned, pruned...)
				logger.Debug("pruned pending components",
					slog.String(log.ComponentIDKey, id),
					slog.Any("pruned", pruned))
				if w.metrics != nil {
					w.metrics.RecordPruned(ctx, w.name, len(pruned))
				}
			}
		}
	}

	out, err := w.output.Assemble(rc)
	if err != nil {
		return nil, errors.Wrap(err, "assembling output")
	}
	return out, nil
}

// execute runs one component and returns a condition's continuation set.
func (w *Workflow) execute(ctx context.Context, rc *runctx.Context, logger *slog.Logger, c *component) ([]string, error) {
	start := time.Now()
	ctx, span := tracing.StartComponent(ctx, w.tracer, c.id, string(c.kind))
	defer span.End()
	clog := log.WithComponentContext(logger, c.id, string(c.kind))

	var next []string
	var err error
	switch c.kind {
	case ComponentCondition:
		next, err = c.condition.Evaluate(rc)
	case ComponentAction:
		err = c.action.Execute(rc)
	}

	elapsed := time.Since(start)
	status := "success"
	if err != nil {
		status = "failed"
		span.RecordError(err)
	} else {
		span.SetOK()
		if next != nil {
			span.AddEvent("condition.evaluated", map[string]any{"next": next})
		}
	}
	if w.metrics != nil {
		w.metrics.RecordComponent(ctx, w.name, string(c.kind), status, elapsed)
	}
	log.Trace(ctx, clog, "component executed",
		slog.String("name", c.name),
		slog.String("status", status),
		log.Duration("duration", elapsed.Milliseconds()))

	return next, err
}

// prune removes from queue every dependant that is not in keep and returns
// the shortened queue with the ids actually removed.
func prune(queue, dependants, keep []string) ([]string, []string) {
	var pruned []string
	for _, d := range dependants {
		if slices.Contains(keep, d) {
			continue
		}
		if i := slices.Index(queue, d); i >= 0 {
			queue = slices.Delete(queue, i, i+1)
			pruned = append(pruned, d)
		}
	}
	return queue, pruned
}

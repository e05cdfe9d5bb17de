package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsCollector collects Prometheus-compatible metrics for workflow runs
type MetricsCollector struct {
	meter metric.Meter

	// Counters
	runsTotal       metric.Int64Counter
	componentsTotal metric.Int64Counter
	prunedTotal     metric.Int64Counter

	// Histograms
	runDuration       metric.Float64Histogram
	componentDuration metric.Float64Histogram
}

// NewMetricsCollector creates a new metrics collector using the given meter provider
func NewMetricsCollector(meterProvider metric.MeterProvider) (*MetricsCollector, error) {
	meter := meterProvider.Meter("ruline")
	mc := &MetricsCollector{meter: meter}

	var err error
	mc.runsTotal, err = meter.Int64Counter(
		"ruline_runs_total",
		metric.WithDescription("Total number of workflow runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	mc.componentsTotal, err = meter.Int64Counter(
		"ruline_components_total",
		metric.WithDescription("Total number of components executed"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, err
	}

	mc.prunedTotal, err = meter.Int64Counter(
		"ruline_pruned_total",
		metric.WithDescription("Total number of pending components pruned by conditions"),
		metric.WithUnit("{component}"),
	)
	if err != nil {
		return nil, err
	}

	mc.runDuration, err = meter.Float64Histogram(
		"ruline_run_duration_seconds",
		metric.WithDescription("Workflow run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	mc.componentDuration, err = meter.Float64Histogram(
		"ruline_component_duration_seconds",
		metric.WithDescription("Component execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return mc, nil
}

// RecordRun records the completion of a workflow run
func (mc *MetricsCollector) RecordRun(ctx context.Context, workflow, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
	mc.runsTotal.Add(ctx, 1, attrs)
	mc.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordComponent records the execution of one component
func (mc *MetricsCollector) RecordComponent(ctx context.Context, workflow, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	mc.componentsTotal.Add(ctx, 1, attrs)
	mc.componentDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordPruned records components a condition removed from the queue
func (mc *MetricsCollector) RecordPruned(ctx context.Context, workflow string, count int) {
	mc.prunedTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String("workflow", workflow)))
}

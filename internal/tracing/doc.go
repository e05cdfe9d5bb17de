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

/*
Package tracing provides OpenTelemetry tracing and metrics for workflow runs.

Create a provider from configuration and hand its tracer and metrics
collector to a workflow:

	provider, err := tracing.NewProvider(ctx, tracing.Config{
	    Exporter:    "otlp",
	    Endpoint:    "localhost:4317",
	    Insecure:    true,
	    ServiceName: "ruline",
	    SampleRate:  1.0,
	})
	if err != nil {
	    return err
	}
	defer provider.Shutdown(ctx)

	wf.WithTracer(provider.Tracer("ruline")).
	    WithMetrics(provider.MetricsCollector())

Each run gets a "workflow.run" span with one "component" child span per
executed component. Metrics are kept in a private Prometheus registry and
can be written in the text exposition format with WriteMetrics.
*/
package tracing

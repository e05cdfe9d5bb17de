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

package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tombee/ruline/internal/commands/shared"
	"github.com/tombee/ruline/internal/config"
	"github.com/tombee/ruline/internal/jq"
	"github.com/tombee/ruline/internal/log"
	"github.com/tombee/ruline/internal/tracing"
	"github.com/tombee/ruline/internal/tracing/export"
	"github.com/tombee/ruline/pkg/workflow"
)

const tracerName = "github.com/tombee/ruline"

// Result is the outcome of one run.
type Result struct {
	Input  string              `json:"input"`
	Output map[string]any      `json:"output,omitempty"`
	Report *workflow.RunReport `json:"report,omitempty"`
	Error  *shared.JSONError   `json:"error,omitempty"`

	err error
}

func runWorkflow(cmd *cobra.Command, path string, opts options) error {
	switch opts.trace {
	case "", export.Console, export.OTLP, export.OTLPHTTP:
	default:
		return shared.NewBadInputError(fmt.Sprintf("unknown trace exporter %q", opts.trace), nil)
	}

	cfg, err := loadConfig()
	if err != nil {
		return shared.NewExecutionError("loading configuration", err)
	}
	jq.SetDefault(cfg.JQExecutor())

	logCfg := cfg.LoggerConfig()
	if shared.GetVerbose() {
		logCfg.Level = "debug"
	}
	logCfg.Output = cmd.ErrOrStderr()
	logger := log.New(logCfg)

	vars, err := parseVars(opts.vars)
	if err != nil {
		return shared.NewBadInputError("parsing variables", err)
	}
	w, err := buildWorkflow(path, vars)
	if err != nil {
		return err
	}

	inputs, err := loadInputs(cmd.InOrStdin(), opts.inputs)
	if err != nil {
		return shared.NewBadInputError("loading inputs", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	traceCfg := cfg.TracingConfig()
	if opts.trace != "" {
		traceCfg.Exporter = opts.trace
	}
	traceCfg.ServiceVersion, _, _ = shared.GetVersion()
	provider, err := tracing.NewProvider(ctx, traceCfg)
	if err != nil {
		return shared.NewExecutionError("configuring tracing", err)
	}
	provider.SetGlobal()
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("failed to shut down tracing", log.Error(err))
		}
	}()

	w.WithLogger(logger).
		WithTracer(provider.Tracer(tracerName)).
		WithMetrics(provider.MetricsCollector())

	logger.Debug("processing inputs",
		slog.String(log.WorkflowKey, w.Name()),
		slog.Int("inputs", len(inputs)),
		slog.Int("max_concurrent_runs", cfg.Run.MaxConcurrentRuns))

	results := processAll(ctx, w, inputs, cfg.Run.MaxConcurrentRuns, cfg.Run.Timeout)

	var failed []Result
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, r)
		}
	}

	if shared.GetJSON() {
		if err := emitResults(cmd.OutOrStdout(), results, opts.explain, len(failed) == 0); err != nil {
			return err
		}
	} else {
		printResults(cmd, results, opts.explain)
	}

	if opts.metrics {
		if err := provider.WriteMetrics(cmd.ErrOrStderr()); err != nil {
			return shared.NewExecutionError("writing metrics", err)
		}
	}

	if len(failed) == 0 {
		return nil
	}
	if shared.GetJSON() {
		return &shared.ExitError{Code: shared.ExitExecutionFailed}
	}
	if len(results) == 1 {
		return shared.NewExecutionError("run failed", failed[0].err)
	}
	return shared.NewExecutionError(fmt.Sprintf("%d of %d runs failed", len(failed), len(results)), failed[0].err)
}

func loadConfig() (*config.Config, error) {
	if path := shared.GetConfigPath(); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// buildWorkflow loads, builds and validates the definition at path with
// the variable overrides applied.
func buildWorkflow(path string, vars map[string]any) (*workflow.Workflow, error) {
	def, err := workflow.LoadDefinition(path)
	if err != nil {
		return nil, shared.NewInvalidWorkflowError("loading definition", err)
	}
	if len(vars) > 0 {
		if def.Variables == nil {
			def.Variables = make(map[string]any, len(vars))
		}
		for k, v := range vars {
			def.Variables[k] = v
		}
	}

	w, err := workflow.New(def)
	if err != nil {
		return nil, shared.NewInvalidWorkflowError("building workflow", err)
	}
	if err := w.Validate(); err != nil {
		return nil, shared.NewInvalidWorkflowError("invalid workflow", err)
	}
	return w, nil
}

// processAll runs every input against the shared workflow, at most limit
// at a time. Results keep input order and one failed run does not stop the
// others.
func processAll(ctx context.Context, w *workflow.Workflow, inputs []input, limit int, timeout time.Duration) []Result {
	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, in := range inputs {
		g.Go(func() error {
			runCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			out, report, err := w.Trace(runCtx, in.Data)
			r := Result{Input: in.Name, Output: out, Report: report, err: err}
			if err != nil {
				je := shared.ToJSONError(err)
				r.Error = &je
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func emitResults(w io.Writer, results []Result, explain, success bool) error {
	type runResponse struct {
		shared.JSONResponse
		Results []Result `json:"results"`
	}
	if !explain {
		for i := range results {
			results[i].Report = nil
		}
	}
	return shared.EmitJSON(w, runResponse{
		JSONResponse: shared.NewJSONResponse("run", success),
		Results:      results,
	})
}

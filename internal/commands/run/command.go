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
	"github.com/spf13/cobra"

	"github.com/tombee/ruline/internal/commands/completion"
)

// options holds the run command's flags.
type options struct {
	inputs  []string
	vars    []string
	explain bool
	metrics bool
	trace   string
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "run <definition>",
		Short: "Process inputs through a workflow",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run builds and validates a workflow definition, then processes each input
document through it and prints the assembled output as JSON.

Inputs are JSON or YAML files; '-' reads standard input. A YAML file with
several documents yields one run per document. Without --input the workflow
runs once with a null input. Inputs are processed concurrently, bounded by
run.max_concurrent_runs in the config file.

Variables:
  --var key=value  overrides a workflow variable before the runs start. The
                   value is parsed as YAML, so numbers, booleans and lists keep
                   their type.

Observability:
  --explain   print each run's traversal (visited, decisions, pruned)
  --metrics   print run metrics in Prometheus text format after the runs
  --trace     export spans to console, otlp or otlp-http

See also: ruline validate`,
		Example: `  # Run a definition against one input
  ruline run orders.yaml --input order.json

  # Pipe an input and explain the traversal
  cat order.json | ruline run orders.yaml --input - --explain

  # Override a variable and print JSON results for several inputs
  ruline run orders.yaml -i a.json -i b.json --var tier=gold --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completion.CompleteDefinitionFiles(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.inputs, "input", "i", nil, "Input document (JSON or YAML file, '-' for stdin); repeatable")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "Override a workflow variable (key=value); repeatable")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show how each run traversed the graph")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print run metrics in Prometheus text format")
	cmd.Flags().StringVar(&opts.trace, "trace", "", "Export spans: console, otlp or otlp-http")
	_ = cmd.RegisterFlagCompletionFunc("trace", completion.CompleteTraceExporters)

	return cmd
}

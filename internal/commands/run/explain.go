package run

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/ruline/internal/cli/format"
	"github.com/tombee/ruline/internal/commands/shared"
	"github.com/tombee/ruline/pkg/workflow"
)

// printResults writes outputs to stdout and failures and explanations to
// stderr, keeping stdout parseable. A single output is indented; several
// are written one JSON document per line. A single output on a color
// terminal is highlighted.
func printResults(cmd *cobra.Command, results []Result, explain bool) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	color := format.IsColorTerminal(stdout)
	for _, r := range results {
		if explain && r.Report != nil {
			renderReport(stderr, r.Input, r.Report)
		}
		if r.err != nil {
			fmt.Fprintln(stderr, shared.RenderError(fmt.Sprintf("%s: %v", r.Input, r.err)))
			continue
		}
		if err := format.JSON(stdout, r.Output, len(results) == 1, color); err != nil {
			fmt.Fprintln(stderr, shared.RenderError(fmt.Sprintf("%s: %v", r.Input, err)))
		}
	}
}

// renderReport prints how a run moved through the graph.
func renderReport(w io.Writer, name string, r *workflow.RunReport) {
	fmt.Fprintf(w, "%s %s %s\n",
		shared.Header.Render("Run "+name),
		shared.RenderLabel(r.RunID),
		shared.RenderLabel(r.Duration.String()))
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("visited: "), shared.RenderIDs(r.Visited))
	if len(r.Decisions) > 0 {
		fmt.Fprintf(w, "  %s\n", shared.RenderLabel("decisions:"))
		for _, d := range r.Decisions {
			fmt.Fprintf(w, "    %s -> %s\n", shared.ComponentID.Render(d.ComponentID), shared.RenderIDs(d.Next))
		}
	}
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("executed:"), shared.RenderIDs(r.Executed))
	fmt.Fprintf(w, "  %s %s\n", shared.RenderLabel("pruned:  "), shared.RenderIDs(r.Pruned))
}

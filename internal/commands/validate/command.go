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

package validate

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tombee/ruline/internal/commands/completion"
	"github.com/tombee/ruline/internal/commands/shared"
	pkgerrors "github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/workflow"
)

// Result is the outcome of validating one definition file.
type Result struct {
	Path       string             `json:"path"`
	Valid      bool               `json:"valid"`
	Name       string             `json:"name,omitempty"`
	Components int                `json:"components"`
	Edges      int                `json:"edges"`
	Errors     []shared.JSONError `json:"errors,omitempty"`
}

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <definition>...",
		Short: "Check that workflow definitions build and have no cycles",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Validate parses each definition, builds every component, links the
component graph and runs structural validation: cycle detection and the
per-condition checks (logical expressions need at least two children,
decisions need at least one expression).

Arguments may be file paths or doublestar glob patterns such as
'rules/**/*.yaml'.

See also: ruline run`,
		Example: `  # Validate a single definition
  ruline validate workflow.yaml

  # Validate every definition under a directory
  ruline validate 'rules/**/*.{json,yaml}'

  # Machine-readable results
  ruline validate rules/*.json --json`,
		Args:              cobra.MinimumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		ValidArgsFunction: completion.CompleteDefinitionFiles,
		RunE:              runValidate,
	}

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := expand(args)
	if err != nil {
		if shared.GetJSON() {
			_ = shared.EmitJSONError(cmd.OutOrStdout(), "validate", []shared.JSONError{{
				Code:    shared.ErrorCodeFileNotFound,
				Message: err.Error(),
			}})
			return &shared.ExitError{Code: shared.ExitBadInput}
		}
		return shared.NewBadInputError("resolving definitions", err)
	}

	results := make([]Result, 0, len(paths))
	failed := 0
	for _, path := range paths {
		r := validateFile(path)
		if !r.Valid {
			failed++
		}
		results = append(results, r)
	}

	if shared.GetJSON() {
		type validateResponse struct {
			shared.JSONResponse
			Results []Result `json:"results"`
		}
		if err := shared.EmitJSON(cmd.OutOrStdout(), validateResponse{
			JSONResponse: shared.NewJSONResponse("validate", failed == 0),
			Results:      results,
		}); err != nil {
			return err
		}
		if failed > 0 {
			return &shared.ExitError{Code: shared.ExitInvalidWorkflow}
		}
		return nil
	}

	for _, r := range results {
		printResult(cmd, r)
	}
	if failed > 0 {
		return shared.NewInvalidWorkflowError(fmt.Sprintf("%d of %d definitions invalid", failed, len(results)), nil)
	}
	return nil
}

// expand resolves glob patterns to a sorted, de-duplicated file list.
// Plain paths that do not exist are returned as-is so the failure is
// reported against the file.
func expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, arg := range args {
		if !doublestar.ValidatePathPattern(arg) {
			return nil, fmt.Errorf("invalid pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", arg, err)
		}
		if len(matches) == 0 {
			if hasMeta(arg) {
				return nil, fmt.Errorf("no files match %q", arg)
			}
			matches = []string{arg}
		}
		sort.Strings(matches)
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	return paths, nil
}

func hasMeta(pattern string) bool {
	for _, r := range pattern {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}

func validateFile(path string) Result {
	r := Result{Path: path}

	def, err := workflow.LoadDefinition(path)
	if err != nil {
		je := shared.ToJSONError(err)
		je.Code = shared.ErrorCodeParseFailed
		if pkgerrors.Is(err, fs.ErrNotExist) {
			je.Code = shared.ErrorCodeFileNotFound
		}
		r.Errors = append(r.Errors, je)
		return r
	}
	r.Name = def.Name
	r.Components = len(def.Components)

	w, err := workflow.New(def)
	if err != nil {
		r.Errors = append(r.Errors, shared.ToJSONError(err))
		return r
	}
	r.Edges = len(w.Edges())

	if err := w.Validate(); err != nil {
		r.Errors = append(r.Errors, shared.ToJSONError(err))
		return r
	}

	r.Valid = true
	return r
}

func printResult(cmd *cobra.Command, r Result) {
	out := cmd.OutOrStdout()
	if r.Valid {
		if shared.GetQuiet() {
			return
		}
		fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%s %s",
			r.Path,
			shared.RenderLabel(fmt.Sprintf("(%d components, %d edges)", r.Components, r.Edges)))))
		return
	}

	fmt.Fprintln(out, shared.RenderError(r.Path))
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel(e.Code), e.Message)
		if e.Suggestion != "" {
			fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("Suggestion:"), e.Suggestion)
		}
	}
}

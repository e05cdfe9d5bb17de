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
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/ruline/internal/commands/shared"
)

func setup(t *testing.T, jsonOutput bool) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"RULINE_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "RULINE_DEBUG",
		"RULINE_MAX_CONCURRENT_RUNS", "RULINE_RUN_TIMEOUT", "RULINE_JQ_TIMEOUT",
		"RULINE_TRACE_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
	t.Cleanup(shared.SetFlagsForTest(false, false, jsonOutput, ""))
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const greetingDefinition = `
name: greeting
components: {}
output:
  greeting: {type: variable, variable: greeting}
`

func TestRun_SingleInput(t *testing.T) {
	setup(t, false)

	stdout, _, err := execute(t, "", "testdata/orders.yaml", "--input", "testdata/large.json")
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, map[string]any{"tier": "freight", "customer": "ADA"}, out)
}

func TestRun_StdinWithExplain(t *testing.T) {
	setup(t, false)

	stdin := `{"quantity": 1, "unit_price": 1, "customer": {"name": "Bo", "tier": "gold", "tags": []}}`
	stdout, stderr, err := execute(t, stdin, "testdata/orders.yaml", "-i", "-", "--explain")
	require.NoError(t, err)

	assert.Contains(t, stdout, `"tier": "express"`)
	assert.Contains(t, stderr, "Run stdin")
	assert.Contains(t, stderr, "visited:")
	assert.Contains(t, stderr, "classify")
	assert.Contains(t, stderr, "pruned:")
}

func TestRun_MultipleInputsJSON(t *testing.T) {
	setup(t, true)

	stdout, _, err := execute(t, "", "testdata/orders.yaml",
		"-i", "testdata/large.json", "-i", "testdata/batch.yaml", "--explain")
	require.NoError(t, err)

	var resp struct {
		shared.JSONResponse
		Results []struct {
			Input  string         `json:"input"`
			Output map[string]any `json:"output"`
			Report *struct {
				Executed []string `json:"executed"`
			} `json:"report"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "run", resp.Command)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, "testdata/large.json", resp.Results[0].Input)
	assert.Equal(t, "freight", resp.Results[0].Output["tier"])
	assert.Equal(t, "testdata/batch.yaml[0]", resp.Results[1].Input)
	assert.Equal(t, "express", resp.Results[1].Output["tier"])
	assert.Equal(t, "LIN", resp.Results[1].Output["customer"])
	assert.Equal(t, "testdata/batch.yaml[1]", resp.Results[2].Input)
	assert.Equal(t, "standard", resp.Results[2].Output["tier"])

	require.NotNil(t, resp.Results[2].Report)
	assert.Equal(t, []string{"standard"}, resp.Results[2].Report.Executed)
}

func TestRun_Vars(t *testing.T) {
	setup(t, false)
	path := writeFile(t, "greeting.yaml", greetingDefinition)

	stdout, _, err := execute(t, "", path, "--var", "greeting=hello")
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting": "hello"}`, stdout)

	stdout, _, err = execute(t, "", path, "--var", "greeting=[1, 2]")
	require.NoError(t, err)
	assert.JSONEq(t, `{"greeting": [1, 2]}`, stdout)
}

func TestRun_Metrics(t *testing.T) {
	setup(t, false)

	_, stderr, err := execute(t, "", "testdata/orders.yaml", "-i", "testdata/batch.yaml", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, stderr, "ruline_runs_total")
	assert.Contains(t, stderr, `workflow="orders"`)
}

func TestRun_ExitCodes(t *testing.T) {
	setup(t, false)

	greeting := writeFile(t, "greeting.yaml", greetingDefinition)
	cyclic := writeFile(t, "cyclic.yaml", `
components:
  a:
    type: condition
    name: a
    definition:
      type: binary
      fallbacks: []
      results: [a]
      expression: {id: "1", type: comparison, operator: exists, operands: [{type: value, value: 1}]}
`)
	badInput := writeFile(t, "bad.json", `{"unterminated": `)

	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"run failure", []string{greeting}, shared.ExitExecutionFailed, "run failed"},
		{"cycle", []string{cyclic}, shared.ExitInvalidWorkflow, "cycle detected: a -> a"},
		{"missing definition", []string{filepath.Join(t.TempDir(), "nope.yaml")}, shared.ExitInvalidWorkflow, "loading definition"},
		{"bad variable", []string{greeting, "--var", "greeting"}, shared.ExitBadInput, "expected key=value"},
		{"bad input", []string{greeting, "-i", badInput}, shared.ExitBadInput, "loading inputs"},
		{"missing input", []string{greeting, "-i", "absent.json"}, shared.ExitBadInput, "failed to read input file"},
		{"stdin twice", []string{greeting, "-i", "-", "-i", "-"}, shared.ExitBadInput, "stdin"},
		{"unknown exporter", []string{greeting, "--trace", "zipkin"}, shared.ExitBadInput, "zipkin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, shared.ExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRun_FailureJSON(t *testing.T) {
	setup(t, true)
	path := writeFile(t, "greeting.yaml", greetingDefinition)

	stdout, _, err := execute(t, "", path)
	require.Error(t, err)
	assert.Equal(t, shared.ExitExecutionFailed, shared.ExitCode(err))

	var resp struct {
		shared.JSONResponse
		Results []Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Success)
	require.Len(t, resp.Results, 1)
	require.NotNil(t, resp.Results[0].Error)
	assert.Equal(t, shared.ErrorCodeOutputFailed, resp.Results[0].Error.Code)
	assert.Nil(t, resp.Results[0].Output)
}

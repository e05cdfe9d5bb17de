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

package shared

import (
	"context"

	pkgerrors "github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/workflow"
)

// Error codes for structured JSON output
const (
	// Definition errors (E001-E099)
	ErrorCodeInvalidDefinition = "E001" // Definition failed to build
	ErrorCodeParseFailed       = "E002" // Definition is not valid JSON or YAML
	ErrorCodeCycle             = "E003" // Component graph has a cycle
	ErrorCodeInvalidReference  = "E004" // Reference to an unknown component

	// Execution errors (E100-E199)
	ErrorCodeComponentFailed = "E101" // A component failed during a run
	ErrorCodeRunInterrupted  = "E102" // Run cancelled or timed out
	ErrorCodeOutputFailed    = "E103" // Output document could not be assembled

	// Configuration errors (E200-E299)
	ErrorCodeInvalidConfig = "E201" // Config file or environment is invalid

	// Input errors (E300-E399)
	ErrorCodeInvalidInput = "E301" // Input document is not valid JSON or YAML
	ErrorCodeFileNotFound = "E302" // File not found
)

// ToJSONError classifies err into a structured error.
func ToJSONError(err error) JSONError {
	je := JSONError{Code: ErrorCodeComponentFailed, Message: err.Error()}

	var userErr pkgerrors.UserVisibleError
	if pkgerrors.As(err, &userErr) && userErr.IsUserVisible() {
		je.Suggestion = userErr.Suggestion()
	}
	var compErr *pkgerrors.ComponentError
	if pkgerrors.As(err, &compErr) {
		je.ComponentID = compErr.ComponentID
	}

	var (
		cycleErr  *workflow.CycleError
		linkErr   *workflow.LinkError
		valErr    *pkgerrors.ValidationError
		configErr *pkgerrors.ConfigError
		missing   *field.NotFoundError
		exitErr   *ExitError
	)
	switch {
	case pkgerrors.As(err, &cycleErr):
		je.Code = ErrorCodeCycle
	case pkgerrors.As(err, &linkErr):
		je.Code = ErrorCodeInvalidReference
	case pkgerrors.As(err, &configErr):
		je.Code = ErrorCodeInvalidConfig
	case compErr != nil && compErr.Phase != "run":
		je.Code = ErrorCodeInvalidDefinition
	case compErr != nil:
		je.Code = ErrorCodeComponentFailed
	case pkgerrors.Is(err, context.Canceled) || pkgerrors.Is(err, context.DeadlineExceeded):
		je.Code = ErrorCodeRunInterrupted
	case pkgerrors.As(err, &missing):
		je.Code = ErrorCodeOutputFailed
	case pkgerrors.As(err, &valErr):
		je.Code = ErrorCodeInvalidDefinition
	case pkgerrors.As(err, &exitErr):
		je.Code = codeForExit(exitErr.Code)
	}
	return je
}

func codeForExit(code int) string {
	switch code {
	case ExitInvalidWorkflow:
		return ErrorCodeInvalidDefinition
	case ExitBadInput:
		return ErrorCodeInvalidInput
	default:
		return ErrorCodeComponentFailed
	}
}

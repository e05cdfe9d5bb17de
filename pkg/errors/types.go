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

package errors

import (
	"fmt"
)

// ValidationError represents definition or input validation failures.
// Use this for malformed definitions, unknown tags, or constraint violations.
type ValidationError struct {
	// Field identifies which part of the definition failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ErrorType implements ErrorClassifier.
func (e *ValidationError) ErrorType() string { return "validation" }

// IsRetryable implements ErrorClassifier.
func (e *ValidationError) IsRetryable() bool { return false }

// NotFoundError represents a reference to something that does not exist.
// Use this when a component, variable, or path cannot be found.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "component", "variable", "function")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrorType implements ErrorClassifier.
func (e *NotFoundError) ErrorType() string { return "not_found" }

// IsRetryable implements ErrorClassifier.
func (e *NotFoundError) IsRetryable() bool { return false }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "jq.timeout", "tracing.exporter")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ConfigError) ErrorType() string { return "config" }

// IsRetryable implements ErrorClassifier.
func (e *ConfigError) IsRetryable() bool { return false }

// ComponentError attributes a failure to a single workflow component.
// Workflows wrap every build and run failure in one so callers can tell
// which component broke without parsing messages.
type ComponentError struct {
	// ComponentID is the id of the component as declared in the definition
	ComponentID string

	// Phase is "build", "validate" or "run"
	Phase string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("component %q (%s): %v", e.ComponentID, e.Phase, e.Cause)
	}
	return fmt.Sprintf("component %q: %v", e.ComponentID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ComponentError) Unwrap() error {
	return e.Cause
}

// ErrorType implements ErrorClassifier.
func (e *ComponentError) ErrorType() string { return "component" }

// IsRetryable implements ErrorClassifier.
func (e *ComponentError) IsRetryable() bool { return false }

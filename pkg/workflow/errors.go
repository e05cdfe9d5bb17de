package workflow

import (
	"fmt"

	"github.com/tombee/ruline/pkg/errors"
)

// LinkKind says which side of a reference could not be resolved.
type LinkKind string

const (
	// LinkDependency is a component whose output is read.
	LinkDependency LinkKind = "dependency"
	// LinkDependant is a component a condition hands control to.
	LinkDependant LinkKind = "dependant"
)

// LinkError reports a reference to a component id that is not declared.
type LinkError struct {
	ComponentID string
	Ref         string
	Kind        LinkKind
}

// Error implements the error interface.
func (e *LinkError) Error() string {
	return fmt.Sprintf("%s `%s` for component `%s` not found", e.Kind, e.Ref, e.ComponentID)
}

// Unwrap exposes the missing component as a NotFoundError.
func (e *LinkError) Unwrap() error {
	return &errors.NotFoundError{Resource: "component", ID: e.Ref}
}

// ErrorType implements errors.ErrorClassifier.
func (e *LinkError) ErrorType() string { return "not_found" }

// IsRetryable implements errors.ErrorClassifier.
func (e *LinkError) IsRetryable() bool { return false }

// IsUserVisible implements errors.UserVisibleError.
func (e *LinkError) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *LinkError) UserMessage() string {
	return fmt.Sprintf("component %s refers to %s, which is not declared", e.ComponentID, e.Ref)
}

// Suggestion implements errors.UserVisibleError.
func (e *LinkError) Suggestion() string {
	return fmt.Sprintf("declare a component with id %q or fix the reference", e.Ref)
}

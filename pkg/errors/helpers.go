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
	"errors"
	"fmt"
)

// Wrap creates a new error that wraps the given error with additional context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := cond.Validate(); err != nil {
//	    return errors.Wrap(err, "validating condition")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf creates a new error that wraps the given error with formatted context.
// If err is nil, returns nil.
//
// Usage:
//
//	if err := link(id); err != nil {
//	    return errors.Wrapf(err, "linking component %s", id)
//	}
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
//
// Usage:
//
//	if errors.Is(err, context.Canceled) {
//	    // run was cancelled
//	}
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target, sets target
// to it and returns true.
//
// Usage:
//
//	var linkErr *workflow.LinkError
//	if errors.As(err, &linkErr) {
//	    fmt.Println("missing", linkErr.Ref)
//	}
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the error err wraps, or nil.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New creates an error with the given message.
func New(message string) error {
	return errors.New(message)
}

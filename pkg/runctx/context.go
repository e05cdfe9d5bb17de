// Package runctx holds the mutable state of a single workflow run.
package runctx

import (
	"context"
	"maps"
	"sync"

	"github.com/tombee/ruline/pkg/value"
)

// Context is the state visible to components during one run: the
// immutable input document, the variable map and the outputs published by
// components so far. A Context is created per run and must not be reused.
type Context struct {
	ctx   context.Context
	input any

	mu        sync.RWMutex
	variables map[string]any
	outputs   map[string]any
}

// New creates a run context. The input is normalised and the variables are
// copied, so later changes by the caller are not observed by the run.
func New(ctx context.Context, input any, variables map[string]any) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	vars := make(map[string]any, len(variables))
	for k, v := range variables {
		vars[k] = value.Normalize(v)
	}
	return &Context{
		ctx:       ctx,
		input:     value.Normalize(input),
		variables: vars,
		outputs:   make(map[string]any),
	}
}

// Context returns the Go context the run was started with.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Data returns the run's input document.
func (c *Context) Data() any {
	return c.input
}

// Variable returns the current value of a variable.
func (c *Context) Variable(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.variables[name]
	return v, ok
}

// SetVariable creates or overwrites a variable.
func (c *Context) SetVariable(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.variables[name] = value.Normalize(v)
}

// Variables returns a snapshot of all variables.
func (c *Context) Variables() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.variables)
}

// Output returns the value a component published.
func (c *Context) Output(componentID string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[componentID]
	return v, ok
}

// SetOutput publishes a value under a component id.
func (c *Context) SetOutput(componentID string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[componentID] = value.Normalize(v)
}

// Outputs returns a snapshot of all published outputs.
func (c *Context) Outputs() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.outputs)
}

// Env returns the run state as a document with "data", "variables" and
// "outputs" keys, the shape expression and jq fields evaluate against.
func (c *Context) Env() map[string]any {
	return map[string]any{
		"data":      c.input,
		"variables": c.Variables(),
		"outputs":   c.Outputs(),
	}
}

package runctx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CopiesAndNormalises(t *testing.T) {
	vars := map[string]any{"count": 1}
	rc := New(context.Background(), map[string]any{"n": 2}, vars)

	vars["count"] = 99

	got, ok := rc.Variable("count")
	require.True(t, ok)
	assert.Equal(t, 1.0, got)
	assert.Equal(t, map[string]any{"n": 2.0}, rc.Data())
	assert.NotNil(t, rc.Context())
}

func TestNew_NilContext(t *testing.T) {
	rc := New(nil, nil, nil) //nolint:staticcheck
	assert.Equal(t, context.Background(), rc.Context())
	assert.Nil(t, rc.Data())
	assert.Empty(t, rc.Variables())
}

func TestVariablesAndOutputs(t *testing.T) {
	rc := New(context.Background(), nil, nil)

	_, ok := rc.Variable("missing")
	assert.False(t, ok)

	rc.SetVariable("color", "green")
	rc.SetOutput("3", map[string]any{"total": 4})

	v, ok := rc.Variable("color")
	require.True(t, ok)
	assert.Equal(t, "green", v)

	out, ok := rc.Output("3")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"total": 4.0}, out)

	snapshot := rc.Variables()
	snapshot["color"] = "red"
	v, _ = rc.Variable("color")
	assert.Equal(t, "green", v)

	env := rc.Env()
	assert.Equal(t, map[string]any{"color": "green"}, env["variables"])
	assert.Contains(t, env["outputs"], "3")
}

func TestConcurrentAccess(t *testing.T) {
	rc := New(context.Background(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("v%d", i)
			rc.SetVariable(key, i)
			_, _ = rc.Variable(key)
			rc.SetOutput(key, i)
			_ = rc.Outputs()
		}(i)
	}
	wg.Wait()

	assert.Len(t, rc.Variables(), 16)
	assert.Len(t, rc.Outputs(), 16)
}

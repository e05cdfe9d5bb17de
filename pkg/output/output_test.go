package output

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/ruline/pkg/errors"
	"github.com/tombee/ruline/pkg/field"
	"github.com/tombee/ruline/pkg/runctx"
)

func TestAssemble(t *testing.T) {
	o, err := Parse([]byte(`{
		"color": {"type": "variable", "variable": "color"},
		"name": {"type": "data", "path": "/customer/name"},
		"score": {"type": "output", "output_id": "7", "path": "/score"},
		"summary": {"type": "value", "value": {"tier": {"type": "variable", "variable": "tier"}, "fixed": [1, 2]}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "name", "score", "summary"}, o.Keys())
	assert.Equal(t, []string{"7"}, o.Dependencies())

	rc := runctx.New(context.Background(),
		map[string]any{"customer": map[string]any{"name": "Ada"}},
		map[string]any{"color": "green", "tier": "gold"})
	rc.SetOutput("7", map[string]any{"score": 0.9})

	doc, err := o.Assemble(rc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"color":   "green",
		"name":    "Ada",
		"score":   0.9,
		"summary": map[string]any{"tier": "gold", "fixed": []any{1.0, 2.0}},
	}, doc)
}

func TestAssemble_Empty(t *testing.T) {
	o, err := New(nil)
	require.NoError(t, err)

	doc, err := o.Assemble(runctx.New(context.Background(), nil, nil))
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.NotNil(t, doc)
}

func TestAssemble_MissingField(t *testing.T) {
	o, err := Parse([]byte(`{"a": {"type": "value", "value": 1}, "b": {"type": "variable", "variable": "nope"}}`))
	require.NoError(t, err)

	doc, err := o.Assemble(runctx.New(context.Background(), nil, nil))
	assert.Nil(t, doc)
	require.Error(t, err)

	var nf *field.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.Definition.Variable)
	assert.Contains(t, err.Error(), `output "b"`)
}

func TestNew_InvalidField(t *testing.T) {
	_, err := Parse([]byte(`{"a": {"type": "output", "path": "/x"}}`))
	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "output_id", ve.Field)

	_, err = Parse([]byte(`[1, 2]`))
	assert.Error(t, err)
}

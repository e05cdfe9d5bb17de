package run

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"name=Ada", "count=3", "vip=true", "tags=[a, b]", "empty=", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":  "Ada",
		"count": 3,
		"vip":   true,
		"tags":  []any{"a", "b"},
		"empty": "",
		"eq":    "a=b",
	}, vars)

	_, err = parseVars([]string{"=x"})
	assert.Error(t, err)
}

func TestLoadInputs(t *testing.T) {
	inputs, err := loadInputs(strings.NewReader("a: 1\n---\na: 2\n"), []string{"-"})
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "stdin[0]", inputs[0].Name)
	assert.Equal(t, map[string]any{"a": 2}, inputs[1].Data)

	inputs, err = loadInputs(strings.NewReader(""), nil)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Nil(t, inputs[0].Data)

	inputs, err = loadInputs(strings.NewReader(""), []string{"-"})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Nil(t, inputs[0].Data)
}

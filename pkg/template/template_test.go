package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	data := Data{Path: "/tmp/push-1.json", ID: "abc", Name: "Orders"}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain argument", input: "import:workflow", expected: "import:workflow"},
		{name: "path", input: "--input={{.Path}}", expected: "--input=/tmp/push-1.json"},
		{name: "id and name", input: "{{.ID}}:{{.Name}}", expected: "abc:Orders"},
		{name: "quote", input: "{{quote .Name}}", expected: `"Orders"`},
		{name: "empty field", input: "{{.File}}", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Render(tt.input, data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRender_Env(t *testing.T) {
	t.Setenv("FLOWSMITH_TEST_TOKEN", "secret")

	result, err := Render(`{{env "FLOWSMITH_TEST_TOKEN"}}`, Data{})
	require.NoError(t, err)
	assert.Equal(t, "secret", result)
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("{{.Path", Data{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")

	_, err = Render("{{.Missing}}", Data{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute template")

	_, err = Render("{{.missing}}", map[string]any{})
	require.Error(t, err)
}

func TestRenderArgs(t *testing.T) {
	args, err := RenderArgs([]string{"import:workflow", "--input={{.Path}}", "{{.File}}"}, Data{Path: "/tmp/a.json"})
	require.NoError(t, err)
	assert.Equal(t, []string{"import:workflow", "--input=/tmp/a.json", ""}, args)

	_, err = RenderArgs([]string{"{{"}, Data{})
	require.Error(t, err)
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("{{.Path}}"))
	assert.False(t, NeedsTemplating("--separate"))
}

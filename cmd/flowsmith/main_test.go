package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowsmith/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v3"
)

func run(t *testing.T, project string, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := app.Run(t.Context(), append([]string{"flowsmith", "--project", project, "--log-level", "error"}, args...))

	return out.String(), err
}

func newTestProject(t *testing.T) string {
	t.Helper()

	project := t.TempDir()
	testutil.WriteDocument(t, filepath.Join(project, "flows"), "orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	return project
}

func TestExternalizeThenCompile(t *testing.T) {
	project := newTestProject(t)

	out, err := run(t, project, "externalize")
	require.NoError(t, err)
	assert.Contains(t, out, "orders.json:")
	assert.Contains(t, out, "Transform -> ")

	stored, err := os.ReadFile(filepath.Join(project, "flows", "orders.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "return items;")

	out, err = run(t, project, "compile", "orders.json")
	require.NoError(t, err)

	var compiled map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &compiled))
	assert.Contains(t, out, "return items;")
	assert.NotEmpty(t, compiled["id"])

	target := filepath.Join(t.TempDir(), "compiled.json")
	_, err = run(t, project, "compile", "--out", target, "orders")
	require.NoError(t, err)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.JSONEq(t, out, string(written))
}

func TestCompile_RequiresOneDocument(t *testing.T) {
	_, err := run(t, newTestProject(t), "compile")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	project := newTestProject(t)

	out, err := run(t, project, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "orders.json: ok")

	broken := testutil.CreateTestDocumentWithNodes("Broken")
	broken.Nodes[1].Type = "core.mockResponse"
	testutil.WriteDocument(t, filepath.Join(project, "flows"), "broken.json", broken)

	out, err = run(t, project, "validate", "broken.json")
	require.Error(t, err)
	assert.Contains(t, out, "broken.json: invalid")
}

func TestValidate_FixWrite(t *testing.T) {
	project := t.TempDir()

	doc := testutil.CreateTestDocumentWithNodes("Positions")
	doc.Nodes[1].Position = nil
	path := testutil.WriteDocument(t, filepath.Join(project, "flows"), "positions.json", doc)

	out, err := run(t, project, "validate", "--write")
	require.NoError(t, err)
	assert.Contains(t, out, "fixed")

	stored, err := os.ReadFile(path)
	require.NoError(t, err)

	var fixed struct {
		Nodes []struct {
			Name     string    `json:"name"`
			Position []float64 `json:"position"`
		} `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(stored, &fixed))
	require.Len(t, fixed.Nodes, 2)
	assert.Len(t, fixed.Nodes[1].Position, 2)
}

func TestStatusAndMarkDeployed(t *testing.T) {
	project := newTestProject(t)

	out, err := run(t, project, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "orders.json")
	assert.Contains(t, out, "new")

	out, err = run(t, project, "mark-deployed", "orders.json")
	require.NoError(t, err)
	assert.Contains(t, out, "orders.json marked deployed")

	out, err = run(t, project, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "deployed")
	assert.NotContains(t, out, "new")

	out, err = run(t, project, "push")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to deploy")
}

func TestMarkDeployed_RequiresDocument(t *testing.T) {
	_, err := run(t, newTestProject(t), "mark-deployed")
	require.Error(t, err)
}

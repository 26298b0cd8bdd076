package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowsmith/pkg/fingerprint"
	"github.com/dukex/flowsmith/pkg/persistence"
	"github.com/dukex/flowsmith/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentRepository(t *testing.T) {
	// Test with regular path
	repo := NewDocumentRepository("/tmp/flows")
	assert.Equal(t, "/tmp/flows", repo.Root())

	// Test with file:// prefix
	repo = NewDocumentRepository("file:///tmp/flows")
	assert.Equal(t, "/tmp/flows", repo.Root())
}

func TestDocumentRepository_SaveAndLoad(t *testing.T) {
	testDir := t.TempDir()
	repo := NewDocumentRepository(testDir)

	doc := testutil.CreateTestDocumentWithNodes("Order Sync")
	doc.Nodes[1].Parameters["html"] = "<p>total</p>"

	err := repo.Save(t.Context(), "team/order-sync.json", doc)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(testDir, "team", "order-sync.json"))

	data, err := os.ReadFile(filepath.Join(testDir, "team", "order-sync.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p>total</p>")

	loaded, err := repo.Load(t.Context(), "team/order-sync.json")
	require.NoError(t, err)
	assert.Equal(t, doc.Name, loaded.Name)
	require.Len(t, loaded.Nodes, 2)
	assert.Equal(t, doc.Nodes[1].Parameters, loaded.Nodes[1].Parameters)
	assert.Equal(t, doc.Connections, loaded.Connections)
}

func TestDocumentRepository_LoadVersion(t *testing.T) {
	testDir := t.TempDir()
	path := testutil.WriteDocument(t, testDir, "team/orders.json", testutil.CreateTestDocumentWithNodes("Orders"))

	repo := NewDocumentRepository(testDir)

	doc, version, err := repo.LoadVersion(t.Context(), "team/orders.json")
	require.NoError(t, err)
	assert.Equal(t, "Orders", doc.Name)

	expected, err := fingerprint.File(path)
	require.NoError(t, err)
	assert.Equal(t, expected, version)

	_, version, err = repo.LoadVersion(t.Context(), "team/missing.json")
	require.ErrorIs(t, err, persistence.ErrDocumentNotFound)
	assert.Empty(t, version)
}

func TestDocumentRepository_LoadJSONC(t *testing.T) {
	testDir := t.TempDir()
	body := `{
  // authored by hand
  "name": "Commented",
  "nodes": [
    {"id": "1", "name": "Start", "type": "core.manualTrigger", "parameters": {}, "webhookId": "abc",},
  ],
  "connections": {},
}`
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "commented.jsonc"), []byte(body), 0o600))

	repo := NewDocumentRepository(testDir)

	doc, err := repo.Load(t.Context(), "commented.jsonc")
	require.NoError(t, err)
	assert.Equal(t, "Commented", doc.Name)
	require.Len(t, doc.Nodes, 1)
	assert.JSONEq(t, `"abc"`, string(doc.Nodes[0].Extra["webhookId"]))

	require.NoError(t, repo.Save(t.Context(), "commented.jsonc", doc))

	data, err := os.ReadFile(filepath.Join(testDir, "commented.jsonc"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"webhookId": "abc"`)
}

func TestDocumentRepository_LoadErrors(t *testing.T) {
	testDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "broken.json"), []byte(`{"name": `), 0o600))

	repo := NewDocumentRepository(testDir)

	_, err := repo.Load(t.Context(), "missing.json")
	assert.True(t, persistence.IsDocumentNotFound(err))

	_, err = repo.Load(t.Context(), "broken.json")
	assert.True(t, persistence.IsInvalidDocument(err))

	_, err = repo.Load(t.Context(), "../outside.json")
	assert.Error(t, err)
}

func TestDocumentRepository_ListAndResolve(t *testing.T) {
	testDir := t.TempDir()
	repo := NewDocumentRepository(testDir)

	for _, name := range []string{"b.json", "a.jsonc", "team/c.json"} {
		require.NoError(t, repo.Save(t.Context(), name, testutil.CreateTestDocument(name)))
	}

	require.NoError(t, os.WriteFile(filepath.Join(testDir, "README.md"), []byte("# flows"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, ".trash"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, ".trash", "old.json"), []byte("{}"), 0o600))

	paths, err := repo.List(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jsonc", "b.json", "team/c.json"}, paths)

	tests := map[string]string{
		"b.json":                         "b.json",
		"a":                              "a.jsonc",
		"c":                              "team/c.json",
		filepath.Join(testDir, "b.json"): "b.json",
		filepath.Join("team", "c.json"):  "team/c.json",
	}

	for ref, expected := range tests {
		resolved, err := repo.Resolve(t.Context(), ref)
		require.NoError(t, err, ref)
		assert.Equal(t, expected, resolved, ref)
	}

	_, err = repo.Resolve(t.Context(), "nothing")
	assert.True(t, persistence.IsDocumentNotFound(err))
}

func TestDocumentRepository_ListMissingRoot(t *testing.T) {
	repo := NewDocumentRepository(filepath.Join(t.TempDir(), "absent"))

	paths, err := repo.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, paths)
	assert.Error(t, repo.HealthCheck(t.Context()))
}

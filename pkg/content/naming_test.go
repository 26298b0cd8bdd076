package content

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"Enrich Order":     "enrich_order",
		"  Send  e-mail! ": "send_e-mail",
		"Übersicht":        "bersicht",
		"???":              "unnamed",
		"":                 "unnamed",
		"node_1":           "node_1",
	}

	for input, want := range tests {
		assert.Equal(t, want, SanitizeName(input), input)
	}
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t,
		"scripts/orders_sync/orders_sync_enrich_order.js",
		RelativePath("scripts", "Orders Sync", "Enrich Order", ".js"))
}

func TestRoot_Resolve(t *testing.T) {
	root := NewRoot("/project/content")

	resolved, err := root.Resolve("scripts/orders/orders_a.js")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/project/content", "scripts", "orders", "orders_a.js"), resolved)

	for _, rel := range []string{"", "../secrets.txt", "scripts/../../x", "/etc/passwd"} {
		_, err := root.Resolve(rel)
		assert.ErrorIs(t, err, ErrOutsideRoot, rel)
	}
}

package content

import (
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataStore_RecordUpsertsByNode(t *testing.T) {
	store := NewMetadataStore(NewRoot(t.TempDir()))

	first := models.ExtractionRecord{
		Node:        "Enrich",
		ContentType: models.ContentTypeScript,
		Subtype:     "javascript",
		Path:        "scripts/orders/orders_enrich.js",
		Fingerprint: "aaaaaaaaaaaa",
		ExtractedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Record("orders", first))

	updated := first
	updated.Fingerprint = "bbbbbbbbbbbb"
	other := models.ExtractionRecord{Node: "Load", ContentType: models.ContentTypeQuery, Path: "queries/orders/orders_load.sql"}
	require.NoError(t, store.Record("orders", updated, other))

	records, err := store.Records("orders")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Enrich", records[0].Node)
	assert.Equal(t, "bbbbbbbbbbbb", records[0].Fingerprint)
	assert.Equal(t, "Load", records[1].Node)
}

func TestMetadataStore_MissingFileIsEmpty(t *testing.T) {
	store := NewMetadataStore(NewRoot(t.TempDir()))

	metadata, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, metadata)
}

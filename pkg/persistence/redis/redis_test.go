//go:build integration

package redis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/models"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping Redis store test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func newStore(t *testing.T, redisURL, namespace string) *LedgerStore {
	t.Helper()

	store, err := NewLedgerStore(t.Context(), log.Discard(), redisURL, namespace)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return store
}

func TestLedgerStore(t *testing.T) {
	redisURL := setupRedis(t)

	t.Run("save and load", func(t *testing.T) {
		store := newStore(t, redisURL, "save-load")
		deployedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

		require.NoError(t, store.Save(t.Context(), models.ChangeRecords{
			"orders.json": {
				Path:                "orders.json",
				Fingerprint:         "aaa",
				LastModified:        deployedAt,
				Deployed:            true,
				DeployedAt:          &deployedAt,
				DeployedFingerprint: "aaa",
			},
		}))

		loaded, err := store.Load(t.Context())
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.True(t, loaded["orders.json"].Deployed)
		assert.False(t, loaded["orders.json"].Dirty())
	})

	t.Run("save replaces previous records", func(t *testing.T) {
		store := newStore(t, redisURL, "replace")
		now := time.Now().UTC()

		require.NoError(t, store.Save(t.Context(), models.ChangeRecords{
			"a.json": {Path: "a.json", Fingerprint: "1", LastModified: now},
			"b.json": {Path: "b.json", Fingerprint: "2", LastModified: now},
		}))
		require.NoError(t, store.Save(t.Context(), models.ChangeRecords{
			"b.json": {Path: "b.json", Fingerprint: "3", LastModified: now},
		}))

		loaded, err := store.Load(t.Context())
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "3", loaded["b.json"].Fingerprint)

		require.NoError(t, store.Save(t.Context(), models.ChangeRecords{}))

		loaded, err = store.Load(t.Context())
		require.NoError(t, err)
		assert.Empty(t, loaded)
	})

	t.Run("corrupted record", func(t *testing.T) {
		store := newStore(t, redisURL, "corrupt")

		options, err := redis.ParseURL(redisURL)
		require.NoError(t, err)

		client := redis.NewClient(options)
		defer client.Close()

		require.NoError(t, client.HSet(t.Context(), store.recordsKey(), "a.json", "{not json").Err())

		_, err = store.Load(t.Context())
		require.ErrorIs(t, err, ledger.ErrLedgerCorrupted)
	})

	t.Run("lock is exclusive", func(t *testing.T) {
		store := newStore(t, redisURL, "lock")

		unlock, err := store.Lock(t.Context())
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()

		_, err = store.Lock(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		require.NoError(t, unlock())

		second, err := store.Lock(t.Context())
		require.NoError(t, err)
		require.NoError(t, second())
	})

	t.Run("ledger over redis", func(t *testing.T) {
		store := newStore(t, redisURL, "ledger")
		flows := t.TempDir()

		require.NoError(t, os.WriteFile(filepath.Join(flows, "orders.json"), []byte(`{"name":"orders"}`), 0o600))

		l := ledger.New(store, flows, log.Discard())

		dirty, err := l.Scan(t.Context())
		require.NoError(t, err)
		require.Len(t, dirty, 1)

		marked, err := l.MarkDeployed(t.Context(), "orders.json", dirty[0].Fingerprint)
		require.NoError(t, err)
		assert.True(t, marked.Deployed)

		dirty, err = l.Scan(t.Context())
		require.NoError(t, err)
		assert.Empty(t, dirty)
	})
}

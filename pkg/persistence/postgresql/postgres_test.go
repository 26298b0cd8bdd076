//go:build integration

package postgresql

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowsmith/pkg/log"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func TestMain(m *testing.M) {
	code := m.Run()

	if postgresContainer != nil {
		_ = postgresContainer.Terminate(context.Background())
	}

	os.Exit(code)
}

func setupStore(t *testing.T, namespace string) (*LedgerStore, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL store test in short mode")
	}

	ctx := context.Background()

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowsmith_test"),
			postgres.WithUsername("flowsmith"),
			postgres.WithPassword("flowsmith"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewLedgerStore(ctx, log.Discard(), databaseURL, namespace)
	require.NoError(t, err)

	t.Cleanup(func() {
		db, err := sql.Open("postgres", databaseURL)
		if err == nil {
			_, _ = db.ExecContext(context.Background(), "DELETE FROM flow_deployments WHERE namespace = $1", namespace)
			_ = db.Close()
		}

		_ = store.Close(context.Background())
	})

	return store, databaseURL
}

func TestLedgerStore_SaveAndLoad(t *testing.T) {
	store, _ := setupStore(t, "save-load")

	deployedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	records := models.ChangeRecords{
		"orders.json": {
			Path:                "orders.json",
			Fingerprint:         "aaa",
			LastModified:        deployedAt,
			Deployed:            true,
			DeployedAt:          &deployedAt,
			DeployedFingerprint: "aaa",
		},
		"team/digest.jsonc": {
			Path:         "team/digest.jsonc",
			Fingerprint:  "bbb",
			LastModified: deployedAt,
		},
	}

	require.NoError(t, store.Save(t.Context(), records))

	loaded, err := store.Load(t.Context())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	orders := loaded["orders.json"]
	assert.True(t, orders.Deployed)
	assert.Equal(t, "aaa", orders.DeployedFingerprint)
	require.NotNil(t, orders.DeployedAt)
	assert.True(t, deployedAt.Equal(*orders.DeployedAt))

	digest := loaded["team/digest.jsonc"]
	assert.False(t, digest.Deployed)
	assert.Nil(t, digest.DeployedAt)
	assert.Empty(t, digest.DeployedFingerprint)
	assert.True(t, digest.Dirty())
}

func TestLedgerStore_SavePrunesMissingPaths(t *testing.T) {
	store, _ := setupStore(t, "prune")

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
}

func TestLedgerStore_NamespacesAreIsolated(t *testing.T) {
	first, databaseURL := setupStore(t, "project-one")

	second, err := NewLedgerStore(t.Context(), log.Discard(), databaseURL, "project-two")
	require.NoError(t, err)

	defer second.Close(t.Context())

	now := time.Now().UTC()
	require.NoError(t, first.Save(t.Context(), models.ChangeRecords{
		"a.json": {Path: "a.json", Fingerprint: "1", LastModified: now},
	}))

	loaded, err := second.Load(t.Context())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestLedgerStore_LockSerializesWriters(t *testing.T) {
	store, _ := setupStore(t, "lock")

	unlock, err := store.Lock(t.Context())
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		acquired = make(chan struct{})
	)

	wg.Add(1)

	go func() {
		defer wg.Done()

		second, err := store.Lock(context.Background())
		if err != nil {
			return
		}

		close(acquired)

		_ = second()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first is held")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, unlock())

	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("second lock was not acquired after release")
	}

	wg.Wait()
}

func TestLedgerStore_HealthCheck(t *testing.T) {
	store, _ := setupStore(t, "health")

	require.NoError(t, store.HealthCheck(t.Context()))
}

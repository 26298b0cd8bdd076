// Package postgresql provides a PostgreSQL backed change ledger store.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

// LedgerStore keeps change records in the flow_deployments table, one
// namespace per project.
type LedgerStore struct {
	db        *sql.DB
	logger    *slog.Logger
	namespace string
}

// NewLedgerStore connects to PostgreSQL and runs the schema migrations.
func NewLedgerStore(ctx context.Context, logger *slog.Logger, databaseURL, namespace string) (*LedgerStore, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &LedgerStore{
		db:        database,
		logger:    logger.With("component", "postgres_ledger"),
		namespace: namespace,
	}, nil
}

// Load returns every record of the namespace.
func (s *LedgerStore) Load(ctx context.Context) (models.ChangeRecords, error) {
	query := `
		SELECT path, fingerprint, last_modified, deployed, deployed_at, deployed_fingerprint
		FROM flow_deployments
		WHERE namespace = $1`

	rows, err := s.db.QueryContext(ctx, query, s.namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query change records: %w", err)
	}
	defer rows.Close()

	records := models.ChangeRecords{}

	for rows.Next() {
		var (
			record              models.ChangeRecord
			deployedAt          sql.NullTime
			deployedFingerprint sql.NullString
		)

		err := rows.Scan(&record.Path, &record.Fingerprint, &record.LastModified, &record.Deployed, &deployedAt, &deployedFingerprint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ledger.ErrLedgerCorrupted, err)
		}

		if deployedAt.Valid {
			at := deployedAt.Time.UTC()
			record.DeployedAt = &at
		}

		record.LastModified = record.LastModified.UTC()
		record.DeployedFingerprint = deployedFingerprint.String
		records[record.Path] = &record
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read change records: %w", err)
	}

	return records, nil
}

// Save replaces the namespace content with records in one transaction.
func (s *LedgerStore) Save(ctx context.Context, records models.ChangeRecords) error {
	transaction, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		_ = transaction.Rollback()
	}()

	paths := make([]string, 0, len(records))
	for path := range records {
		paths = append(paths, path)
	}

	_, err = transaction.ExecContext(ctx,
		"DELETE FROM flow_deployments WHERE namespace = $1 AND NOT (path = ANY($2))",
		s.namespace, pq.Array(paths))
	if err != nil {
		return fmt.Errorf("failed to prune change records: %w", err)
	}

	upsert := `
		INSERT INTO flow_deployments (namespace, path, fingerprint, last_modified, deployed, deployed_at, deployed_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (namespace, path) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			last_modified = EXCLUDED.last_modified,
			deployed = EXCLUDED.deployed,
			deployed_at = EXCLUDED.deployed_at,
			deployed_fingerprint = EXCLUDED.deployed_fingerprint`

	for path, record := range records {
		_, err = transaction.ExecContext(ctx, upsert,
			s.namespace,
			path,
			record.Fingerprint,
			record.LastModified,
			record.Deployed,
			nullTime(record.DeployedAt),
			sql.NullString{String: record.DeployedFingerprint, Valid: record.DeployedFingerprint != ""},
		)
		if err != nil {
			return fmt.Errorf("failed to save change record %s: %w", path, err)
		}
	}

	err = transaction.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit change records: %w", err)
	}

	return nil
}

// Lock takes a session level advisory lock keyed by the namespace. The lock
// lives on a dedicated connection until unlock is called.
func (s *LedgerStore) Lock(ctx context.Context) (ledger.Unlock, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	_, err = conn.ExecContext(ctx, "SELECT pg_advisory_lock(hashtext($1))", s.namespace)
	if err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("failed to take advisory lock: %w", err)
	}

	return func() error {
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := conn.ExecContext(unlockCtx, "SELECT pg_advisory_unlock(hashtext($1))", s.namespace)
		closeErr := conn.Close()

		if err != nil {
			return fmt.Errorf("failed to release advisory lock: %w", err)
		}

		return closeErr
	}, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *LedgerStore) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *LedgerStore) Close(_ context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *t, Valid: true}
}

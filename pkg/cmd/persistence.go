package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dukex/flowsmith/pkg/config"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/persistence/postgresql"
	"github.com/dukex/flowsmith/pkg/persistence/redis"
)

var supportedLedgerProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

// NewLedgerStore opens the change ledger store named by ledgerURL. Bare
// paths and file:// URLs use the JSON file store; relative paths resolve
// against project.
//
//nolint:ireturn // the store is picked at runtime
func NewLedgerStore(ctx context.Context, logger *slog.Logger, ledgerURL, namespace, project string) (ledger.Store, error) {
	provider := parseLedgerProvider(ledgerURL)

	switch provider {
	case "postgres", "postgresql":
		store, err := postgresql.NewLedgerStore(ctx, logger, ledgerURL, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres ledger: %w", err)
		}

		return store, nil
	case "redis", "rediss":
		store, err := redis.NewLedgerStore(ctx, logger, ledgerURL, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis ledger: %w", err)
		}

		return store, nil
	case "file":
		path := strings.TrimPrefix(ledgerURL, "file://")
		if !filepath.IsAbs(path) {
			path = filepath.Join(project, path)
		}

		return ledger.NewFileStore(path), nil
	default:
		return nil, fmt.Errorf("%w: unsupported ledger provider %q", config.ErrInvalidConfig, provider)
	}
}

func parseLedgerProvider(ledgerURL string) string {
	provider, _, found := strings.Cut(ledgerURL, "://")
	if !found {
		return "file"
	}

	for _, supported := range supportedLedgerProviders {
		if provider == supported {
			return provider
		}
	}

	return provider
}

// Package persistence provides the storage abstraction for workflow documents.
package persistence

import (
	"context"

	"github.com/dukex/flowsmith/pkg/models"
)

// DocumentRepository loads and stores workflow documents by their path
// relative to the flows directory.
type DocumentRepository interface {
	// List returns the paths of every stored document, sorted.
	List(ctx context.Context) ([]string, error)
	// Resolve maps a user supplied name or path to a stored document path.
	Resolve(ctx context.Context, ref string) (string, error)
	Load(ctx context.Context, path string) (*models.WorkflowDocument, error)
	// LoadVersion is Load plus the fingerprint of the exact bytes parsed.
	LoadVersion(ctx context.Context, path string) (*models.WorkflowDocument, string, error)
	Save(ctx context.Context, path string, doc *models.WorkflowDocument) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

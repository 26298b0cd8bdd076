package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dukex/flowsmith/pkg/fsutil"
	"github.com/dukex/flowsmith/pkg/models"
)

// DefaultPath is the ledger file used when no ledger URL is configured.
const DefaultPath = ".flowsmith/ledger.json"

// FileStore keeps the ledger in a JSON file. Writes are atomic and writers
// across processes are serialized with an advisory lock on a sibling file.
type FileStore struct {
	path string
	mu   *sync.Mutex
}

// NewFileStore creates a store at path; a file:// prefix is accepted.
func NewFileStore(path string) *FileStore {
	path = strings.TrimPrefix(path, "file://")

	return &FileStore{path: path, mu: fsutil.PathMutex(path)}
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (models.ChangeRecords, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.ChangeRecords{}, nil
		}

		return nil, fmt.Errorf("%w: %v", ErrLedgerCorrupted, err)
	}

	records := models.ChangeRecords{}

	err = json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerCorrupted, err)
	}

	return records, nil
}

func (s *FileStore) Save(_ context.Context, records models.ChangeRecords) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal change ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fsutil.WriteFileAtomic(s.path, data, fsutil.FilePerm)
}

// Lock takes the cross-process lock guarding the ledger file.
func (s *FileStore) Lock(ctx context.Context) (Unlock, error) {
	return lockFile(ctx, s.path+".lock")
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}

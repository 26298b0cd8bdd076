// Package ledger tracks which workflow documents changed since they were
// last pushed successfully.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flowsmith/pkg/fingerprint"
	"github.com/dukex/flowsmith/pkg/models"
)

var (
	// ErrLedgerCorrupted is returned by stores whose content cannot be read.
	// The ledger treats it as an empty ledger so every document is pushed again.
	ErrLedgerCorrupted = errors.New("change ledger is corrupted")

	// ErrUnknownDocument is returned when marking a path that is not a flow file.
	ErrUnknownDocument = errors.New("document is not tracked")
)

// Unlock releases a store lock.
type Unlock func() error

// Store persists change records.
type Store interface {
	Load(ctx context.Context) (models.ChangeRecords, error)
	Save(ctx context.Context, records models.ChangeRecords) error
	Close(ctx context.Context) error
}

// Locker is implemented by stores that can serialize writers across processes.
type Locker interface {
	Lock(ctx context.Context) (Unlock, error)
}

// DocumentExtensions are the flow file extensions picked up by Scan.
var DocumentExtensions = []string{".json", ".jsonc"}

// IsDocumentFile reports whether name has a flow file extension.
func IsDocumentFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range DocumentExtensions {
		if ext == candidate {
			return true
		}
	}

	return false
}

// Ledger compares flow files against the state recorded at the last push.
type Ledger struct {
	store    Store
	flowsDir string
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// New creates a ledger over the flow files under flowsDir.
func New(store Store, flowsDir string, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		flowsDir: flowsDir,
		logger:   logger.With("component", "ledger"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FlowsDir returns the directory holding flow files.
func (l *Ledger) FlowsDir() string {
	return l.flowsDir
}

// Abs maps a ledger path to its file.
func (l *Ledger) Abs(path string) string {
	return filepath.Join(l.flowsDir, filepath.FromSlash(path))
}

// Rel maps a file under the flows directory to its ledger path.
func (l *Ledger) Rel(file string) (string, error) {
	rel, err := filepath.Rel(l.flowsDir, file)
	if err != nil {
		return "", err
	}

	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s is outside %s", ErrUnknownDocument, file, l.flowsDir)
	}

	return rel, nil
}

// Fingerprint hashes the current content of a flow file.
func (l *Ledger) Fingerprint(path string) (string, error) {
	return fingerprint.File(l.Abs(path))
}

// Scan refreshes every record from the files on disk and returns the dirty
// records sorted by path.
func (l *Ledger) Scan(ctx context.Context) ([]*models.ChangeRecord, error) {
	var dirty []*models.ChangeRecord

	err := l.update(ctx, func(records models.ChangeRecords) error {
		seen := make(map[string]bool)

		err := l.walk(func(rel string, info fs.FileInfo) error {
			hash, err := l.Fingerprint(rel)
			if err != nil {
				return err
			}

			seen[rel] = true

			record, ok := records[rel]
			if !ok {
				record = &models.ChangeRecord{Path: rel}
				records[rel] = record
			}

			record.Fingerprint = hash
			record.LastModified = info.ModTime().UTC()

			if record.Deployed && record.Fingerprint != record.DeployedFingerprint {
				record.Deployed = false
			}

			return nil
		})
		if err != nil {
			return err
		}

		for path := range records {
			if !seen[path] {
				delete(records, path)
			}
		}

		dirty = dirtyRecords(records)

		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "Scanned flow files", "dirty", len(dirty))

	return dirty, nil
}

// MarkDeployed records a successful push of path. The file is hashed again
// now: the record only counts as deployed when the current content is the
// content that was pushed.
func (l *Ledger) MarkDeployed(ctx context.Context, path, pushedFingerprint string) (*models.ChangeRecord, error) {
	var marked models.ChangeRecord

	err := l.update(ctx, func(records models.ChangeRecords) error {
		info, err := os.Stat(l.Abs(path))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUnknownDocument, path, err)
		}

		current, err := l.Fingerprint(path)
		if err != nil {
			return err
		}

		record, ok := records[path]
		if !ok {
			record = &models.ChangeRecord{Path: path}
			records[path] = record
		}

		now := l.now()
		record.Fingerprint = current
		record.LastModified = info.ModTime().UTC()
		record.DeployedFingerprint = pushedFingerprint
		record.DeployedAt = &now
		record.Deployed = current == pushedFingerprint

		marked = *record

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !marked.Deployed {
		l.logger.WarnContext(ctx, "Document changed while it was being pushed", "path", path)
	} else {
		l.logger.InfoContext(ctx, "Marked document deployed", "path", path)
	}

	return &marked, nil
}

// Status returns every record without touching the files.
func (l *Ledger) Status(ctx context.Context) (models.ChangeRecords, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.load(ctx)
}

// Dirty returns the dirty records as currently stored.
func (l *Ledger) Dirty(ctx context.Context) ([]*models.ChangeRecord, error) {
	records, err := l.Status(ctx)
	if err != nil {
		return nil, err
	}

	return dirtyRecords(records), nil
}

func (l *Ledger) update(ctx context.Context, fn func(models.ChangeRecords) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if locker, ok := l.store.(Locker); ok {
		unlock, err := locker.Lock(ctx)
		if err != nil {
			return fmt.Errorf("failed to lock change ledger: %w", err)
		}

		defer func() {
			if err := unlock(); err != nil {
				l.logger.ErrorContext(ctx, "Failed to unlock change ledger", "error", err)
			}
		}()
	}

	records, err := l.load(ctx)
	if err != nil {
		return err
	}

	err = fn(records)
	if err != nil {
		return err
	}

	return l.store.Save(ctx, records)
}

func (l *Ledger) load(ctx context.Context) (models.ChangeRecords, error) {
	records, err := l.store.Load(ctx)
	if errors.Is(err, ErrLedgerCorrupted) {
		l.logger.WarnContext(ctx, "Change ledger is unreadable, treating every document as changed", "error", err)

		return models.ChangeRecords{}, nil
	}

	if err != nil {
		return nil, err
	}

	if records == nil {
		records = models.ChangeRecords{}
	}

	for path, record := range records {
		if record == nil {
			delete(records, path)
		}
	}

	return records, nil
}

func (l *Ledger) walk(fn func(rel string, info fs.FileInfo) error) error {
	if _, err := os.Stat(l.flowsDir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(l.flowsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path != l.flowsDir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !IsDocumentFile(entry.Name()) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		rel, err := l.Rel(path)
		if err != nil {
			return err
		}

		return fn(rel, info)
	})
}

func dirtyRecords(records models.ChangeRecords) []*models.ChangeRecord {
	dirty := make([]*models.ChangeRecord, 0)

	for _, record := range records {
		if record.Dirty() {
			copied := *record
			dirty = append(dirty, &copied)
		}
	}

	sort.Slice(dirty, func(i, j int) bool {
		return dirty[i].Path < dirty[j].Path
	})

	return dirty
}

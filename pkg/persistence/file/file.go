// Package file provides file-based persistence for workflow documents.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dukex/flowsmith/pkg/fingerprint"
	"github.com/dukex/flowsmith/pkg/fsutil"
	"github.com/dukex/flowsmith/pkg/ledger"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/persistence"
	"github.com/tidwall/jsonc"
)

// DocumentRepository stores one document per file under the flows directory.
// Files may be JSON or JSONC; saving always writes plain JSON.
type DocumentRepository struct {
	root string
}

// NewDocumentRepository creates a repository rooted at the flows directory.
func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{root: strings.Replace(root, "file://", "", 1)}
}

// Root returns the flows directory.
func (r *DocumentRepository) Root() string {
	return r.root
}

// List returns the slash-separated paths of every document file.
func (r *DocumentRepository) List(_ context.Context) ([]string, error) {
	paths := make([]string, 0)

	if _, err := os.Stat(r.root); errors.Is(err, fs.ErrNotExist) {
		return paths, nil
	}

	err := filepath.WalkDir(r.root, func(file string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if file != r.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if !ledger.IsDocumentFile(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(r.root, file)
		if err != nil {
			return err
		}

		paths = append(paths, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(paths)

	return paths, nil
}

// Resolve accepts a stored path, a path relative to the working directory
// or a bare document name with or without extension.
func (r *DocumentRepository) Resolve(ctx context.Context, ref string) (string, error) {
	candidates := []string{filepath.ToSlash(ref)}

	if rel, err := filepath.Rel(r.root, ref); err == nil && !strings.HasPrefix(rel, "..") {
		candidates = append(candidates, filepath.ToSlash(rel))
	}

	if path.Ext(ref) == "" {
		for _, ext := range ledger.DocumentExtensions {
			candidates = append(candidates, filepath.ToSlash(ref)+ext)
		}
	}

	for _, candidate := range candidates {
		file, err := r.file(candidate)
		if err != nil {
			continue
		}

		if fsutil.FileExists(file) {
			return path.Clean(candidate), nil
		}
	}

	paths, err := r.List(ctx)
	if err != nil {
		return "", err
	}

	for _, stored := range paths {
		if strings.TrimSuffix(path.Base(stored), path.Ext(stored)) == ref {
			return stored, nil
		}
	}

	return "", persistence.NewDocumentError("Resolve", ref, persistence.ErrDocumentNotFound)
}

// Load reads and parses a document. Comments and trailing commas are allowed.
func (r *DocumentRepository) Load(ctx context.Context, docPath string) (*models.WorkflowDocument, error) {
	doc, _, err := r.LoadVersion(ctx, docPath)

	return doc, err
}

// LoadVersion reads and parses a document and fingerprints the bytes it read,
// so callers know exactly which content they hold.
func (r *DocumentRepository) LoadVersion(_ context.Context, docPath string) (*models.WorkflowDocument, string, error) {
	file, err := r.file(docPath)
	if err != nil {
		return nil, "", persistence.NewDocumentError("Load", docPath, err)
	}

	body, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", persistence.NewDocumentError("Load", docPath, persistence.ErrDocumentNotFound)
		}

		return nil, "", persistence.NewDocumentError("Load", docPath, err)
	}

	var doc models.WorkflowDocument

	err = json.Unmarshal(jsonc.ToJSON(body), &doc)
	if err != nil {
		return nil, "", persistence.NewDocumentError("Load", docPath, fmt.Errorf("%w: %v", persistence.ErrInvalidDocument, err))
	}

	return &doc, fingerprint.Of(body), nil
}

// Save writes doc atomically as indented JSON.
func (r *DocumentRepository) Save(_ context.Context, docPath string, doc *models.WorkflowDocument) error {
	file, err := r.file(docPath)
	if err != nil {
		return persistence.NewDocumentError("Save", docPath, err)
	}

	data, err := Marshal(doc)
	if err != nil {
		return persistence.NewDocumentError("Save", docPath, err)
	}

	mu := fsutil.PathMutex(file)
	mu.Lock()
	defer mu.Unlock()

	err = fsutil.WriteFileAtomic(file, data, fsutil.FilePerm)
	if err != nil {
		return persistence.NewDocumentError("Save", docPath, err)
	}

	return nil
}

// HealthCheck verifies the flows directory exists.
func (r *DocumentRepository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(r.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (r *DocumentRepository) Close(_ context.Context) error {
	return nil
}

func (r *DocumentRepository) file(docPath string) (string, error) {
	cleaned := path.Clean(filepath.ToSlash(docPath))
	if docPath == "" || path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q is outside the flows directory", persistence.ErrDocumentNotFound, docPath)
	}

	return filepath.Join(r.root, filepath.FromSlash(cleaned)), nil
}

// Marshal renders a document the way the repository stores it: indented,
// without HTML escaping, newline terminated.
func Marshal(doc *models.WorkflowDocument) ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document %s: %w", doc.Name, err)
	}

	return buf.Bytes(), nil
}

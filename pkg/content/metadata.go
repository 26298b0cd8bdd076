package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dukex/flowsmith/pkg/fsutil"
	"github.com/dukex/flowsmith/pkg/models"
)

// MetadataFile is the name of the extraction metadata ledger inside the content root.
const MetadataFile = ".metadata.json"

// Metadata is the extraction metadata ledger: document name -> records.
type Metadata map[string][]models.ExtractionRecord

// MetadataStore persists extraction provenance for every document.
type MetadataStore struct {
	path string
	mu   *sync.Mutex
}

// NewMetadataStore returns the metadata store of a content root.
func NewMetadataStore(root Root) *MetadataStore {
	path := filepath.Join(root.Dir(), MetadataFile)

	return &MetadataStore{path: path, mu: fsutil.PathMutex(path)}
}

// Load reads the whole ledger. A missing file is an empty ledger.
func (s *MetadataStore) Load() (Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *MetadataStore) load() (Metadata, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Metadata{}, nil
		}

		return nil, fmt.Errorf("failed to read content metadata: %w", err)
	}

	metadata := Metadata{}

	err = json.Unmarshal(data, &metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content metadata: %w", err)
	}

	return metadata, nil
}

// Record upserts records for a document, keyed by node name.
func (s *MetadataStore) Record(document string, records ...models.ExtractionRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	metadata, err := s.load()
	if err != nil {
		return err
	}

	byNode := make(map[string]models.ExtractionRecord)
	for _, record := range metadata[document] {
		byNode[record.Node] = record
	}

	for _, record := range records {
		byNode[record.Node] = record
	}

	merged := make([]models.ExtractionRecord, 0, len(byNode))
	for _, record := range byNode {
		merged = append(merged, record)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Node < merged[j].Node
	})

	metadata[document] = merged

	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal content metadata: %w", err)
	}

	return fsutil.WriteFileAtomic(s.path, data, fsutil.FilePerm)
}

// Records returns the records of one document.
func (s *MetadataStore) Records(document string) ([]models.ExtractionRecord, error) {
	metadata, err := s.Load()
	if err != nil {
		return nil, err
	}

	return metadata[document], nil
}

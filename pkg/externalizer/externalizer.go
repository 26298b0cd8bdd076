// Package externalizer moves content embedded in node parameters into files
// under the content root and leaves reference keys in its place.
package externalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/flowsmith/pkg/catalog"
	"github.com/dukex/flowsmith/pkg/content"
	"github.com/dukex/flowsmith/pkg/fingerprint"
	"github.com/dukex/flowsmith/pkg/fsutil"
	"github.com/dukex/flowsmith/pkg/models"
)

// MessageDelimiter opens each message block in a message-list file.
const MessageDelimiter = "### "

var (
	// ErrUnsupportedValue is returned when a content field holds a value of the wrong shape.
	ErrUnsupportedValue = errors.New("unsupported content value")
)

// Result summarizes one document pass.
type Result struct {
	Document  string
	Extracted []models.ExtractionRecord
	Skipped   []string
}

// Changed reports whether the document was mutated and must be saved.
func (r *Result) Changed() bool {
	return len(r.Extracted) > 0
}

// Externalizer writes content files and rewrites node parameters.
type Externalizer struct {
	root     content.Root
	metadata *content.MetadataStore
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an externalizer for the given content root.
func New(root content.Root, logger *slog.Logger) *Externalizer {
	return &Externalizer{
		root:     root,
		metadata: content.NewMetadataStore(root),
		logger:   logger.With("component", "externalizer"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Document externalizes every classified node of doc in place. Nodes whose
// fields already hold references are skipped, so running it twice is a no-op.
func (e *Externalizer) Document(ctx context.Context, doc *models.WorkflowDocument) (*Result, error) {
	result := &Result{Document: doc.Name}
	used := claimedPaths(doc)

	for _, node := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		// Null entries are left for the structural validator to report.
		if node == nil {
			continue
		}

		records, err := e.node(doc.Name, node, used)
		if err != nil {
			return result, fmt.Errorf("node %q: %w", node.Name, err)
		}

		if len(records) == 0 {
			result.Skipped = append(result.Skipped, node.Name)

			continue
		}

		result.Extracted = append(result.Extracted, records...)
	}

	err := e.metadata.Record(doc.Name, result.Extracted...)
	if err != nil {
		return result, err
	}

	if result.Changed() {
		e.logger.InfoContext(ctx, "Externalized document content",
			"document", doc.Name,
			"extracted", len(result.Extracted),
			"skipped", len(result.Skipped),
		)
	}

	return result, nil
}

func (e *Externalizer) node(document string, node *models.NodeRecord, used map[string]string) ([]models.ExtractionRecord, error) {
	entry, ok := catalog.Lookup(node.Type)
	if !ok {
		return nil, nil
	}

	var records []models.ExtractionRecord

	for _, field := range entry.FieldsFor(node) {
		value, present := node.Lookup(field.Path)
		if !present || isEmpty(value) || models.IsReference(value) {
			continue
		}

		text, expression, err := extract(entry.Shape, value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Path, err)
		}

		rel := e.uniquePath(entry.Directory, document, node.Name, field, used)

		record, err := e.write(document, node.Name, entry.ContentType, field, rel, text)
		if err != nil {
			return nil, err
		}

		key := record.Reference().Key()
		if expression {
			key = models.ExpressionMarker + key
		}

		node.Assign(field.Path, key)
		records = append(records, record)
	}

	return records, nil
}

// claimedPaths maps the content paths already referenced by doc to the node
// holding them, so a later node never reuses an earlier node's file.
func claimedPaths(doc *models.WorkflowDocument) map[string]string {
	used := make(map[string]string)

	for _, node := range doc.Nodes {
		if node == nil {
			continue
		}

		entry, ok := catalog.Lookup(node.Type)
		if !ok {
			continue
		}

		for _, field := range entry.Fields {
			value, present := node.Lookup(field.Path)
			if !present {
				continue
			}

			if rel, _, isRef := models.ParseReferenceKey(value); isRef {
				used[rel] = node.Name
			}
		}
	}

	return used
}

func (e *Externalizer) uniquePath(dir, document, nodeName string, field catalog.Field, used map[string]string) string {
	rel := content.RelativePath(dir, document, nodeName, field.Extension)
	base := strings.TrimSuffix(rel, field.Extension)
	suffix := fingerprint.Short([]byte(nodeName))[:6]

	for attempt := 1; ; attempt++ {
		owner, taken := used[rel]
		if !taken || owner == nodeName {
			break
		}

		if attempt == 1 {
			rel = base + "_" + suffix + field.Extension
		} else {
			rel = fmt.Sprintf("%s_%s_%d%s", base, suffix, attempt, field.Extension)
		}
	}

	used[rel] = nodeName

	return rel
}

func (e *Externalizer) write(document, nodeName string, contentType models.ContentType, field catalog.Field, rel, text string) (models.ExtractionRecord, error) {
	path, err := e.root.Resolve(rel)
	if err != nil {
		return models.ExtractionRecord{}, err
	}

	header := content.Header{Node: nodeName, Workflow: document, Subtype: field.Subtype}
	data := content.StyleFor(field.Extension).Render(header) + text

	err = fsutil.WriteFileAtomic(path, []byte(data), fsutil.FilePerm)
	if err != nil {
		return models.ExtractionRecord{}, err
	}

	return models.ExtractionRecord{
		Node:        nodeName,
		ContentType: contentType,
		Subtype:     field.Subtype,
		Path:        rel,
		Fingerprint: fingerprint.Short([]byte(text)),
		ExtractedAt: e.now(),
	}, nil
}

func extract(shape catalog.Shape, value any) (string, bool, error) {
	switch shape {
	case catalog.ShapeMessageList:
		text, err := joinMessages(value)

		return text, false, err
	case catalog.ShapeTemplatedText:
		str, ok := value.(string)
		if !ok {
			return "", false, fmt.Errorf("%w: expected text, got %T", ErrUnsupportedValue, value)
		}

		if strings.HasPrefix(str, models.ExpressionMarker) {
			return strings.TrimPrefix(str, models.ExpressionMarker), true, nil
		}

		return str, false, nil
	default:
		str, ok := value.(string)
		if !ok {
			return "", false, fmt.Errorf("%w: expected text, got %T", ErrUnsupportedValue, value)
		}

		return str, false, nil
	}
}

// joinMessages concatenates role/content entries into "### role" blocks.
func joinMessages(value any) (string, error) {
	messages, ok := value.([]any)
	if !ok {
		return "", fmt.Errorf("%w: expected message list, got %T", ErrUnsupportedValue, value)
	}

	blocks := make([]string, 0, len(messages))

	for i, raw := range messages {
		message, ok := raw.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: message %d is %T", ErrUnsupportedValue, i, raw)
		}

		role, _ := message["role"].(string)
		if role == "" {
			role = catalog.DefaultMessageRole
		}

		text, ok := message["content"].(string)
		if !ok {
			return "", fmt.Errorf("%w: message %d content is %T", ErrUnsupportedValue, i, message["content"])
		}

		blocks = append(blocks, MessageDelimiter+role+"\n"+text)
	}

	return strings.Join(blocks, "\n\n"), nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == "" || v == models.ExpressionMarker
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

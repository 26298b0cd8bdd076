// Package compiler builds push-ready copies of workflow documents by
// resolving content references back into node parameters.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukex/flowsmith/pkg/catalog"
	"github.com/dukex/flowsmith/pkg/content"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrMissingContent marks a reference whose file does not exist. It is a
	// warning: the field is left empty and compilation continues.
	ErrMissingContent = errors.New("missing external content")

	// ErrNilDocument is returned when Compile is called without a document.
	ErrNilDocument = errors.New("document cannot be nil")
)

// DocumentNamespace seeds the name-based ids given to documents without one.
var DocumentNamespace = uuid.MustParse("9b1f5f5e-6c0e-4f5a-8f43-6f1d2b7f1a11")

// StableID derives a deterministic document id from the flow path relative
// to the flows directory. The extension is ignored so a .json file and its
// .jsonc rename keep their id.
func StableID(filename string) string {
	rel := strings.TrimPrefix(path.Clean(filepath.ToSlash(filename)), "./")
	stem := strings.TrimSuffix(rel, path.Ext(rel))

	return uuid.NewSHA1(DocumentNamespace, []byte(stem)).String()
}

// Warning is a recoverable condition found while compiling.
type Warning struct {
	Node  string
	Field string
	Path  string
	Err   error
}

func (w Warning) Error() string {
	return fmt.Sprintf("node %q field %s (%s): %v", w.Node, w.Field, w.Path, w.Err)
}

func (w Warning) Unwrap() error {
	return w.Err
}

// Result is a compiled copy of a document plus warnings.
type Result struct {
	Document *models.WorkflowDocument
	Warnings []Warning
	Resolved int
}

// HasMissingContent reports whether any reference could not be resolved.
func (r *Result) HasMissingContent() bool {
	for _, warning := range r.Warnings {
		if errors.Is(warning, ErrMissingContent) {
			return true
		}
	}

	return false
}

// Compiler resolves references against a content root.
type Compiler struct {
	root   content.Root
	logger *slog.Logger
	now    func() time.Time
}

// New creates a compiler reading from root.
func New(root content.Root, logger *slog.Logger) *Compiler {
	return &Compiler{
		root:   root,
		logger: logger.With("component", "compiler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Compile returns a push-ready copy of doc. The source document is never
// modified. filename is the document's flow path, used to derive a stable id.
func (c *Compiler) Compile(ctx context.Context, doc *models.WorkflowDocument, filename string) (*Result, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	compiled, err := doc.Clone()
	if err != nil {
		return nil, fmt.Errorf("failed to copy document %s: %w", doc.Name, err)
	}

	c.applyDefaults(compiled, filename)

	result := &Result{Document: compiled}

	for _, node := range compiled.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if node == nil {
			continue
		}

		err := c.resolveNode(ctx, node, result)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", compiled.Name, err)
		}
	}

	if len(result.Warnings) > 0 {
		c.logger.WarnContext(ctx, "Compiled document with unresolved content",
			"document", compiled.Name,
			"warnings", len(result.Warnings),
		)
	}

	return result, nil
}

func (c *Compiler) applyDefaults(doc *models.WorkflowDocument, filename string) {
	if doc.ID == "" {
		doc.ID = StableID(filename)
	}

	if doc.Active == nil {
		inactive := false
		doc.Active = &inactive
	}

	if doc.Settings == nil {
		doc.Settings = map[string]any{}
	}

	if doc.Connections == nil {
		doc.Connections = models.ConnectionMap{}
	}

	if doc.Nodes == nil {
		doc.Nodes = []*models.NodeRecord{}
	}

	now := c.now()
	if doc.CreatedAt == nil {
		created := now
		doc.CreatedAt = &created
	}

	doc.UpdatedAt = &now

	for _, node := range doc.Nodes {
		if node != nil && node.Parameters == nil {
			node.Parameters = map[string]any{}
		}
	}
}

// resolveNode embeds every referenced file of node. Only a missing file is
// recoverable; any other read failure aborts the compile.
func (c *Compiler) resolveNode(ctx context.Context, node *models.NodeRecord, result *Result) error {
	entry, ok := catalog.Lookup(node.Type)
	if !ok {
		return nil
	}

	// Every field is checked, not only the active one, so a reference left
	// behind after switching a code node's language is still resolved.
	for _, field := range entry.Fields {
		value, present := node.Lookup(field.Path)
		if !present {
			continue
		}

		rel, expression, isRef := models.ParseReferenceKey(value)
		if !isRef {
			continue
		}

		text, err := c.load(rel, field.Extension)
		if err != nil && !errors.Is(err, ErrMissingContent) {
			return fmt.Errorf("node %q field %s: %w", node.Name, field.Path, err)
		}

		if err != nil {
			result.Warnings = append(result.Warnings, Warning{Node: node.Name, Field: field.Path, Path: rel, Err: err})
			c.logger.WarnContext(ctx, "Content reference could not be resolved",
				"node", node.Name, "field", field.Path, "path", rel, "error", err)
			node.Assign(field.Path, empty(entry.Shape))

			continue
		}

		node.Assign(field.Path, embed(entry.Shape, text, expression))
		result.Resolved++
	}

	return nil
}

func (c *Compiler) load(rel, extension string) (string, error) {
	file, err := c.root.Resolve(rel)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingContent, rel)
		}

		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}

	style := content.StyleFor(path.Ext(rel))
	if extension != "" && path.Ext(rel) == "" {
		style = content.StyleFor(extension)
	}

	body, _, _ := style.Strip(string(data))

	return body, nil
}

// embed rebuilds the parameter value for a shape from file text.
func embed(shape catalog.Shape, text string, expression bool) any {
	switch shape {
	case catalog.ShapeMessageList:
		return []any{
			map[string]any{
				"role":    catalog.DefaultMessageRole,
				"content": text,
			},
		}
	case catalog.ShapeTemplatedText:
		if expression {
			return models.ExpressionMarker + text
		}

		return text
	default:
		return text
	}
}

func empty(shape catalog.Shape) any {
	if shape == catalog.ShapeMessageList {
		return []any{}
	}

	return ""
}

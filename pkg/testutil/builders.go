// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// CreateTestNode creates a test NodeRecord with default values that can be overridden.
func CreateTestNode(overrides ...func(*models.NodeRecord)) *models.NodeRecord {
	version := 2.0
	node := &models.NodeRecord{
		ID:          uuid.New().String(),
		Name:        "Test Node",
		Type:        "core.code",
		TypeVersion: &version,
		Position:    json.RawMessage(`[100,200]`),
		Parameters:  map[string]any{"jsCode": "return items;"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as a manual trigger.
func WithTriggerNode() func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		version := 1.0
		n.Type = "core.manualTrigger"
		n.TypeVersion = &version
		n.Parameters = map[string]any{}
	}
}

// WithParameters sets the node parameters.
func WithParameters(parameters map[string]any) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Parameters = parameters
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Name = name
	}
}

// WithPosition sets the node position.
func WithPosition(x, y float64) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.SetCoordinates(x, y)
	}
}

// WithoutPosition removes the node position.
func WithoutPosition() func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Position = nil
	}
}

// WithType sets the node type.
func WithType(nodeType string) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Type = nodeType
	}
}

// WithTypeVersion sets the node type version; nil clears it.
func WithTypeVersion(version *float64) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.TypeVersion = version
	}
}

// WithID sets the node ID.
func WithID(id string) func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.ID = id
	}
}

// WithDisabled marks the node disabled.
func WithDisabled() func(*models.NodeRecord) {
	return func(n *models.NodeRecord) {
		n.Disabled = true
	}
}

// CreateTestDocument creates an empty workflow document.
func CreateTestDocument(name string) *models.WorkflowDocument {
	return &models.WorkflowDocument{
		Name:        name,
		Nodes:       []*models.NodeRecord{},
		Connections: models.ConnectionMap{},
		Settings:    map[string]any{"executionOrder": "v1"},
	}
}

// CreateTestDocumentWithNodes creates a document with a manual trigger wired
// to a code node.
func CreateTestDocumentWithNodes(name string) *models.WorkflowDocument {
	doc := CreateTestDocument(name)

	trigger := CreateTestNode(WithTriggerNode(), WithID("trigger-1"), WithName("Start"), WithPosition(0, 0))
	code := CreateTestNode(WithID("code-1"), WithName("Transform"), WithPosition(220, 0))

	doc.Nodes = []*models.NodeRecord{trigger, code}
	Connect(doc, "Start", "Transform")

	return doc
}

// Connect adds a main-port edge between two named nodes.
func Connect(doc *models.WorkflowDocument, source, target string) {
	if doc.Connections == nil {
		doc.Connections = models.ConnectionMap{}
	}

	doc.Connections.Connect(models.ConnectionEdge{
		SourceNode: source,
		SourcePort: models.DefaultPort,
		TargetNode: target,
		TargetPort: models.DefaultPort,
	})
}

// WriteDocument stores doc as JSON under dir and returns the file path.
func WriteDocument(t *testing.T, dir, filename string, doc *models.WorkflowDocument) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)

	path := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}

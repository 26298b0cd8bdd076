// Package models defines the workflow document model handled by the artifact pipeline.
package models

import (
	"encoding/json"
	"time"
)

// WorkflowDocument is a declarative workflow graph as consumed by the external engine.
type WorkflowDocument struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"                  validate:"required"`
	Active      *bool           `json:"active,omitempty"`
	Nodes       []*NodeRecord   `json:"nodes"                 validate:"required,dive"`
	Connections ConnectionMap   `json:"connections"           validate:"required"`
	Settings    map[string]any  `json:"settings,omitempty"`
	PinData     json.RawMessage `json:"pinData,omitempty"`
	StaticData  json.RawMessage `json:"staticData,omitempty"`
	Meta        json.RawMessage `json:"meta,omitempty"`
	Tags        json.RawMessage `json:"tags,omitempty"`
	VersionID   string          `json:"versionId,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// NodeByName returns the node with the given display name.
func (d *WorkflowDocument) NodeByName(name string) (*NodeRecord, bool) {
	for _, node := range d.Nodes {
		if node != nil && node.Name == name {
			return node, true
		}
	}

	return nil, false
}

// Edges flattens the connection map into a deterministic list of edges.
func (d *WorkflowDocument) Edges() []ConnectionEdge {
	return d.Connections.Edges()
}

// Clone returns a deep copy of the document. Parameters and settings are
// copied through a JSON round trip so nested maps are never shared.
func (d *WorkflowDocument) Clone() (*WorkflowDocument, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var clone WorkflowDocument

	err = json.Unmarshal(data, &clone)
	if err != nil {
		return nil, err
	}

	return &clone, nil
}

// IsActive reports the active flag, treating an absent flag as inactive.
func (d *WorkflowDocument) IsActive() bool {
	return d.Active != nil && *d.Active
}

package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NodeRecord represents a node instance inside a workflow document.
type NodeRecord struct {
	ID          string          `json:"id"                    validate:"required"`
	Name        string          `json:"name"                  validate:"required,min=1"`
	Type        string          `json:"type"                  validate:"required"`
	TypeVersion *float64        `json:"typeVersion,omitempty"`
	Position    json.RawMessage `json:"position,omitempty"`
	Parameters  map[string]any  `json:"parameters"`
	Credentials map[string]any  `json:"credentials,omitempty"`
	Disabled    bool            `json:"disabled,omitempty"`
	Notes       string          `json:"notes,omitempty"`

	// Extra keeps engine-specific keys this model does not name so that
	// rewriting a document never drops them.
	Extra map[string]json.RawMessage `json:"-"`
}

var nodeRecordKeys = []string{
	"id", "name", "type", "typeVersion", "position", "parameters",
	"credentials", "disabled", "notes",
}

type nodeRecordAlias NodeRecord

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (n *NodeRecord) UnmarshalJSON(data []byte) error {
	var alias nodeRecordAlias

	err := json.Unmarshal(data, &alias)
	if err != nil {
		return err
	}

	var raw map[string]json.RawMessage

	err = json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}

	for _, key := range nodeRecordKeys {
		delete(raw, key)
	}

	*n = NodeRecord(alias)
	if len(raw) > 0 {
		n.Extra = raw
	}

	return nil
}

// MarshalJSON encodes the known fields followed by any preserved extra keys.
// HTML is not escaped so embedded templates stay readable on disk.
func (n NodeRecord) MarshalJSON() ([]byte, error) {
	data, err := marshalUnescaped(nodeRecordAlias(n))
	if err != nil || len(n.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage

	err = json.Unmarshal(data, &merged)
	if err != nil {
		return nil, err
	}

	for key, value := range n.Extra {
		if _, known := merged[key]; !known {
			merged[key] = value
		}
	}

	return marshalUnescaped(merged)
}

func marshalUnescaped(value any) ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(value)
	if err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Family returns the namespace part of the capability type ("ai" for "ai.openai").
func (n *NodeRecord) Family() string {
	family, _, found := strings.Cut(n.Type, ".")
	if !found {
		return ""
	}

	return family
}

// Coordinates decodes the canvas position. ok is false when the position is
// missing or is not a pair of numbers.
func (n *NodeRecord) Coordinates() (float64, float64, bool) {
	if len(n.Position) == 0 {
		return 0, 0, false
	}

	var pair []float64

	err := json.Unmarshal(n.Position, &pair)
	if err != nil || len(pair) != 2 {
		return 0, 0, false
	}

	return pair[0], pair[1], true
}

// SetCoordinates stores a canvas position as an [x, y] pair.
func (n *NodeRecord) SetCoordinates(x, y float64) {
	data, _ := json.Marshal([]float64{x, y})
	n.Position = data
}

// Lookup resolves a dotted field path inside the parameter map.
func (n *NodeRecord) Lookup(path string) (any, bool) {
	return LookupPath(n.Parameters, path)
}

// Assign sets a dotted field path inside the parameter map, creating
// intermediate maps as needed.
func (n *NodeRecord) Assign(path string, value any) {
	if n.Parameters == nil {
		n.Parameters = map[string]any{}
	}

	AssignPath(n.Parameters, path, value)
}

// LookupPath resolves a dotted path ("options.systemMessage") in a nested map.
func LookupPath(values map[string]any, path string) (any, bool) {
	current := any(values)

	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// AssignPath sets a dotted path in a nested map, creating intermediate maps.
func AssignPath(values map[string]any, path string, value any) {
	keys := strings.Split(path, ".")
	current := values

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}

		current = next
	}

	current[keys[len(keys)-1]] = value
}

// DeletePath removes a dotted path from a nested map. It reports whether a
// value was removed.
func DeletePath(values map[string]any, path string) bool {
	keys := strings.Split(path, ".")
	current := values

	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			return false
		}

		current = next
	}

	last := keys[len(keys)-1]
	if _, ok := current[last]; !ok {
		return false
	}

	delete(current, last)

	return true
}

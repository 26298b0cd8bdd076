package models

import (
	"strings"
	"time"
)

// ContentType classifies externalized content.
type ContentType string

const (
	ContentTypeScript   ContentType = "script"
	ContentTypePrompt   ContentType = "prompt"
	ContentTypeQuery    ContentType = "query"
	ContentTypeTemplate ContentType = "template"
)

// ReferencePrefix marks a parameter value that points at an externalized file.
const ReferencePrefix = "@content:"

// ExpressionMarker is the engine's leading marker for expression-evaluated text.
const ExpressionMarker = "="

// ContentReference describes externalized content. Inside a node it is
// stored only as its reference key; the rest is recorded in the metadata ledger.
type ContentReference struct {
	ContentType ContentType `json:"content_type"`
	Subtype     string      `json:"subtype"`
	Path        string      `json:"path"`
	Fingerprint string      `json:"fingerprint"`
}

// Key returns the value stored in the parameter map for this reference.
func (r ContentReference) Key() string {
	return ReferencePrefix + r.Path
}

// ParseReferenceKey extracts the relative path and the expression marker flag
// from a parameter value. ok is false when the value is not a reference.
func ParseReferenceKey(value any) (string, bool, bool) {
	str, isString := value.(string)
	if !isString {
		return "", false, false
	}

	expression := false
	if strings.HasPrefix(str, ExpressionMarker+ReferencePrefix) {
		expression = true
		str = strings.TrimPrefix(str, ExpressionMarker)
	}

	if !strings.HasPrefix(str, ReferencePrefix) {
		return "", false, false
	}

	path := strings.TrimPrefix(str, ReferencePrefix)
	if path == "" {
		return "", false, false
	}

	return path, expression, true
}

// IsReference reports whether a parameter value is a content reference key.
func IsReference(value any) bool {
	_, _, ok := ParseReferenceKey(value)

	return ok
}

// ExtractionRecord is one metadata ledger entry describing where a node's
// content was moved to.
type ExtractionRecord struct {
	Node        string      `json:"node"`
	ContentType ContentType `json:"content_type"`
	Subtype     string      `json:"subtype"`
	Path        string      `json:"path"`
	Fingerprint string      `json:"fingerprint"`
	ExtractedAt time.Time   `json:"extracted_at"`
}

// Reference returns the content reference described by the record.
func (r ExtractionRecord) Reference() ContentReference {
	return ContentReference{
		ContentType: r.ContentType,
		Subtype:     r.Subtype,
		Path:        r.Path,
		Fingerprint: r.Fingerprint,
	}
}

// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDocumentNotFound indicates no document exists at the given path.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidDocument indicates a stored document could not be parsed.
	ErrInvalidDocument = errors.New("invalid document")
)

// DocumentError wraps document-related errors with additional context.
type DocumentError struct {
	Op   string // Operation being performed (e.g., "Load", "Save")
	Path string // Document path relative to the flows directory
	Err  error  // Underlying error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for document errors.
func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, path string, err error) *DocumentError {
	return &DocumentError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsInvalidDocument checks if an error indicates a document could not be parsed.
func IsInvalidDocument(err error) bool {
	return errors.Is(err, ErrInvalidDocument)
}

// Package services orchestrates the artifact pipeline: externalizing
// workspaces, preparing documents for the engine and deploying dirty ones.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToDeploy is returned when a deploy run finds no dirty document.
	ErrNothingToDeploy = errors.New("no dirty documents")

	// ErrInvalidSchedule is returned for a cron expression that cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid sync schedule")

	// ErrDocumentNil is returned when a nil document is handed to the pipeline.
	ErrDocumentNil = errors.New("document cannot be nil")
)

// ServiceError wraps a failure of one document with the stage it failed in.
type ServiceError struct {
	Op       string // Operation name
	Document string // Flow path
	Stage    string // Pipeline stage
	Err      error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Document, e.Stage, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Document, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// StageOf returns the stage recorded in err, or "" when err carries none.
func StageOf(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Stage
	}

	return ""
}

func newStageError(op, document, stage string, err error) *ServiceError {
	return &ServiceError{Op: op, Document: document, Stage: stage, Err: err}
}

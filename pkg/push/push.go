// Package push hands compiled workflow documents to the external engine.
package push

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/persistence/file"
)

const (
	// DefaultTimeout bounds a single push call.
	DefaultTimeout = 60 * time.Second

	// ExcerptLimit is the size of the diagnostic excerpt kept in results.
	ExcerptLimit = 512
)

// ErrPushFailed is returned when the engine rejects a document.
var ErrPushFailed = errors.New("push failed")

// Artifact is a compiled document staged on disk for the engine.
type Artifact struct {
	// Path is the transient file holding the compiled document.
	Path string
	// Source is the flow path the document was compiled from.
	Source   string
	Document *models.WorkflowDocument
}

// Outcome is what the engine reported for one artifact.
type Outcome struct {
	Success     bool
	Diagnostics string
	Failures    []string
	Benign      []string
}

// Boundary accepts one compiled document at a time.
type Boundary interface {
	Push(ctx context.Context, artifact Artifact) (Outcome, error)
}

// Error is a rejected push. Diagnostics holds the full engine output.
type Error struct {
	Op          string
	Source      string
	Diagnostics string
	Err         error
}

func (e *Error) Error() string {
	excerpt := Excerpt(e.Diagnostics, ExcerptLimit)
	if excerpt == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Source, e.Err)
	}

	return fmt.Sprintf("%s %s: %v: %s", e.Op, e.Source, e.Err, excerpt)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsPushFailed reports whether err is a rejected push.
func IsPushFailed(err error) bool {
	return errors.Is(err, ErrPushFailed)
}

// Excerpt truncates diagnostics to at most limit bytes without splitting a
// UTF-8 sequence.
func Excerpt(diagnostics string, limit int) string {
	if len(diagnostics) <= limit {
		return diagnostics
	}

	cut := limit
	for cut > 0 && !isRuneStart(diagnostics[cut]) {
		cut--
	}

	return diagnostics[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Stage writes doc to a 0600 temp file in dir. The returned cleanup removes
// it and must be called on every path.
func Stage(dir, source string, doc *models.WorkflowDocument) (Artifact, func(), error) {
	data, err := file.Marshal(doc)
	if err != nil {
		return Artifact{}, func() {}, fmt.Errorf("failed to encode compiled document: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "flowsmith-push-*.json")
	if err != nil {
		return Artifact{}, func() {}, fmt.Errorf("failed to create push artifact: %w", err)
	}

	cleanup := func() {
		_ = os.Remove(tmp.Name())
	}

	err = tmp.Chmod(0o600)
	if err == nil {
		_, err = tmp.Write(data)
	}

	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}

	if err != nil {
		cleanup()

		return Artifact{}, func() {}, fmt.Errorf("failed to write push artifact: %w", err)
	}

	return Artifact{Path: tmp.Name(), Source: source, Document: doc}, cleanup, nil
}

// Run stages doc, pushes it under timeout and removes the artifact. A
// rejected push is returned as an *Error wrapping ErrPushFailed.
func Run(ctx context.Context, boundary Boundary, dir, source string, doc *models.WorkflowDocument, timeout time.Duration) (Outcome, error) {
	artifact, cleanup, err := Stage(dir, source, doc)
	defer cleanup()

	if err != nil {
		return Outcome{}, err
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	pushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := boundary.Push(pushCtx, artifact)
	if err != nil {
		return outcome, &Error{Op: "push", Source: source, Diagnostics: outcome.Diagnostics, Err: errors.Join(ErrPushFailed, err)}
	}

	if !outcome.Success {
		return outcome, &Error{Op: "push", Source: source, Diagnostics: outcome.Diagnostics, Err: ErrPushFailed}
	}

	return outcome, nil
}

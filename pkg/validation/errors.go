package validation

import (
	"errors"
	"fmt"
)

// ErrStructural marks a document that is not structurally well-formed.
var ErrStructural = errors.New("structural validation failed")

// ReportError carries a report whose errors block a push.
type ReportError struct {
	Op       string  // Operation being performed
	Document string  // Document name
	Report   *Report // Report with at least one error
	Err      error   // Underlying sentinel
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("%s failed for document %s: %v (%d errors)", e.Op, e.Document, e.Err, len(e.Report.Errors()))
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

func (e *ReportError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewReportError wraps report as an error when it contains blocking issues.
// It returns nil for a report without errors.
func NewReportError(op, document string, report *Report, sentinel error) error {
	if report == nil || !report.HasErrors() {
		return nil
	}

	return &ReportError{Op: op, Document: document, Report: report, Err: sentinel}
}

// IsStructural checks if an error is a structural validation failure.
func IsStructural(err error) bool {
	return errors.Is(err, ErrStructural)
}

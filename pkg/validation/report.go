// Package validation checks workflow documents for structural well-formedness
// and applies deterministic fixes.
package validation

import (
	"fmt"
	"strings"
)

// Severity of a reported issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Code identifies the kind of an issue.
type Code string

const (
	CodeMissingField      Code = "missing_field"
	CodeDuplicateNodeID   Code = "duplicate_node_id"
	CodeDuplicateNodeName Code = "duplicate_node_name"
	CodeInvalidType       Code = "invalid_type"
	CodeFamilyNotAllowed  Code = "family_not_allowed"
	CodeBannedToken       Code = "banned_token"
	CodeDanglingEdge      Code = "dangling_edge"
	CodeNegativeIndex     Code = "negative_index"
	CodeBadCombinator     Code = "bad_combinator"
	CodeMissingCompanion  Code = "missing_companion"
	CodeMissingVersion    Code = "missing_type_version"
	CodeUnreachableNode   Code = "unreachable_node"
	CodeMissingPosition   Code = "missing_position"

	CodeMissingRequired Code = "missing_required"
	CodeOutOfRange      Code = "out_of_range"
	CodeWrongValueType  Code = "wrong_value_type"
	CodeDeprecatedValue Code = "deprecated_value"
	CodeMisspelledField Code = "misspelled_field"
	CodeForeignField    Code = "foreign_field"
)

// Issue is one finding about a document or one of its nodes.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Node     string   `json:"node,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Fixable  bool     `json:"fixable,omitempty"`
}

func (i Issue) String() string {
	location := "document"
	if i.Node != "" {
		location = fmt.Sprintf("node %q", i.Node)
	}

	if i.Field != "" {
		location += " " + i.Field
	}

	return fmt.Sprintf("[%s] %s: %s (%s)", i.Severity, location, i.Message, i.Code)
}

// Report collects issues. The zero value is an empty, valid report.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Add appends an issue.
func (r *Report) Add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Errorf appends an error-severity issue.
func (r *Report) Errorf(code Code, node, field, format string, args ...any) {
	r.Add(Issue{Severity: SeverityError, Code: code, Node: node, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a warning-severity issue.
func (r *Report) Warnf(code Code, node, field, format string, args ...any) {
	r.Add(Issue{Severity: SeverityWarning, Code: code, Node: node, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge appends every issue of other.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}

	r.Issues = append(r.Issues, other.Issues...)
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []Issue {
	return r.filter(func(i Issue) bool { return i.Severity == SeverityError })
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []Issue {
	return r.filter(func(i Issue) bool { return i.Severity == SeverityWarning })
}

// ForNode returns the issues reported against one node.
func (r *Report) ForNode(name string) []Issue {
	return r.filter(func(i Issue) bool { return i.Node == name })
}

// WithCode returns the issues carrying code.
func (r *Report) WithCode(code Code) []Issue {
	return r.filter(func(i Issue) bool { return i.Code == code })
}

// HasErrors reports whether any issue blocks a push.
func (r *Report) HasErrors() bool {
	return len(r.Errors()) > 0
}

func (r *Report) filter(keep func(Issue) bool) []Issue {
	issues := make([]Issue, 0)

	for _, issue := range r.Issues {
		if keep(issue) {
			issues = append(issues, issue)
		}
	}

	return issues
}

// Summary renders the error issues on one line each.
func (r *Report) Summary() string {
	lines := make([]string, 0, len(r.Issues))
	for _, issue := range r.Errors() {
		lines = append(lines, issue.String())
	}

	return strings.Join(lines, "\n")
}

// Fix records one change applied by an auto-fix pass.
type Fix struct {
	Code        Code   `json:"code"`
	Node        string `json:"node,omitempty"`
	Field       string `json:"field,omitempty"`
	Description string `json:"description"`
}

// FixResult is the outcome of an auto-fix pass: the fixes applied and the
// report produced by re-validating afterwards.
type FixResult struct {
	Applied []Fix   `json:"applied"`
	Report  *Report `json:"report"`
}

package services

import (
	"context"
	"log/slog"

	"github.com/dukex/flowsmith/pkg/compiler"
	"github.com/dukex/flowsmith/pkg/contracts"
	"github.com/dukex/flowsmith/pkg/events"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/validation"
)

// Prepared is a compiled, validated document ready for the push boundary.
type Prepared struct {
	Document *models.WorkflowDocument
	Warnings []compiler.Warning
	Fixes    []validation.Fix
	Report   *validation.Report
}

// Pipeline compiles a stored document and runs both validators over the
// compiled copy.
type Pipeline struct {
	compiler   *compiler.Compiler
	structural *validation.Validator
	contracts  *contracts.Validator
	autoFix    bool
	logger     *slog.Logger
}

// NewPipeline creates a pipeline. With autoFix the deterministic fixes of
// both validators are applied to the compiled copy before the final check.
func NewPipeline(c *compiler.Compiler, structural *validation.Validator, contract *contracts.Validator, autoFix bool, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		compiler:   c,
		structural: structural,
		contracts:  contract,
		autoFix:    autoFix,
		logger:     logger.With("component", "pipeline"),
	}
}

// Prepare compiles doc and validates the copy. The stored document is never
// modified. A structural error returns validation.ErrStructural, a remaining
// contract violation returns contracts.ErrContractViolation; both come with
// the Prepared value so callers can print the report.
func (p *Pipeline) Prepare(ctx context.Context, path string, doc *models.WorkflowDocument) (*Prepared, error) {
	if doc == nil {
		return nil, newStageError("prepare", path, events.StageCompile, ErrDocumentNil)
	}

	compiled, err := p.compiler.Compile(ctx, doc, path)
	if err != nil {
		return nil, newStageError("prepare", path, events.StageCompile, err)
	}

	for _, warning := range compiled.Warnings {
		p.logger.WarnContext(ctx, "Compiled with missing content", "document", path, "node", warning.Node, "field", warning.Field, "file", warning.Path)
	}

	prepared := &Prepared{
		Document: compiled.Document,
		Warnings: compiled.Warnings,
		Fixes:    make([]validation.Fix, 0),
	}

	prepared.Report = p.Check(prepared.Document, &prepared.Fixes)

	for _, fix := range prepared.Fixes {
		p.logger.InfoContext(ctx, "Applied fix", "document", path, "code", fix.Code, "node", fix.Node, "fix", fix.Description)
	}

	err = Blocking(path, prepared.Report)
	if err != nil {
		return prepared, newStageError("prepare", path, events.StageValidate, err)
	}

	return prepared, nil
}

// Check validates doc with both validators. When the pipeline auto-fixes,
// doc is fixed in place and the applied fixes are appended to fixes.
func (p *Pipeline) Check(doc *models.WorkflowDocument, fixes *[]validation.Fix) *validation.Report {
	if !p.autoFix {
		return p.Validate(doc)
	}

	report, applied := p.Fix(doc)
	if fixes != nil {
		*fixes = append(*fixes, applied...)
	}

	return report
}

// Validate reports the issues of doc without changing it.
func (p *Pipeline) Validate(doc *models.WorkflowDocument) *validation.Report {
	report := &validation.Report{}
	report.Merge(p.structural.Validate(doc))
	report.Merge(p.contracts.Validate(doc))

	return report
}

// Fix applies the deterministic fixes of both validators to doc and returns
// the residual report with the fixes applied.
func (p *Pipeline) Fix(doc *models.WorkflowDocument) (*validation.Report, []validation.Fix) {
	contractFix := p.contracts.Fix(doc)
	structuralFix := p.structural.Fix(doc)

	applied := make([]validation.Fix, 0, len(contractFix.Applied)+len(structuralFix.Applied))
	applied = append(applied, contractFix.Applied...)
	applied = append(applied, structuralFix.Applied...)

	report := &validation.Report{}
	report.Merge(structuralFix.Report)
	report.Merge(p.contracts.Validate(doc))

	return report, applied
}

// Blocking turns the blocking issues of report into an error. Structural
// errors win over contract violations.
func Blocking(path string, report *validation.Report) error {
	structural := &validation.Report{}
	contract := &validation.Report{}

	for _, issue := range report.Errors() {
		if isContractCode(issue.Code) {
			contract.Add(issue)
		} else {
			structural.Add(issue)
		}
	}

	err := validation.NewReportError("validate", path, structural, validation.ErrStructural)
	if err != nil {
		return err
	}

	return validation.NewReportError("validate", path, contract, contracts.ErrContractViolation)
}

func isContractCode(code validation.Code) bool {
	switch code {
	case validation.CodeMissingRequired,
		validation.CodeOutOfRange,
		validation.CodeWrongValueType,
		validation.CodeDeprecatedValue,
		validation.CodeMisspelledField,
		validation.CodeForeignField:
		return true
	default:
		return false
	}
}

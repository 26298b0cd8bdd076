package contracts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/validation"
)

// Fix repairs every contracted node of doc in place and re-validates.
func (v *Validator) Fix(doc *models.WorkflowDocument) *validation.FixResult {
	applied := make([]validation.Fix, 0)

	if doc != nil {
		for _, node := range doc.Nodes {
			if node != nil {
				applied = append(applied, v.FixNode(node)...)
			}
		}
	}

	return &validation.FixResult{Applied: applied, Report: v.Validate(doc)}
}

// FixNode repairs one node: synonyms are renamed, foreign fields stripped,
// numeric strings coerced, out-of-range numbers clamped and missing
// required fields given their defaults.
func (v *Validator) FixNode(node *models.NodeRecord) []validation.Fix {
	compiled, ok := v.contracts[node.Type]
	if !ok {
		return nil
	}

	if node.Parameters == nil {
		node.Parameters = map[string]any{}
	}

	params := node.Parameters
	contract := compiled.contract

	var fixes []validation.Fix

	record := func(code validation.Code, field, format string, args ...any) {
		fixes = append(fixes, validation.Fix{
			Code:        code,
			Node:        node.Name,
			Field:       field,
			Description: fmt.Sprintf(format, args...),
		})
	}

	for _, field := range contract.Fields {
		for _, synonym := range field.Synonyms {
			value, present := models.LookupPath(params, synonym)
			if !present {
				continue
			}

			models.DeletePath(params, synonym)

			if _, set := models.LookupPath(params, field.Path); set {
				record(validation.CodeMisspelledField, synonym, "removed %s, %s is already set", synonym, field.Path)

				continue
			}

			models.AssignPath(params, field.Path, value)
			record(validation.CodeMisspelledField, synonym, "renamed %s to %s", synonym, field.Path)
		}
	}

	for _, path := range compiled.foreign {
		if models.DeletePath(params, path) {
			record(validation.CodeForeignField, path, "removed %s", path)
		}
	}

	for _, field := range contract.Fields {
		value, present := models.LookupPath(params, field.Path)
		if !present || value == nil {
			continue
		}

		if field.Kind != KindString {
			if n, ok := parseNumber(value); ok {
				record(validation.CodeWrongValueType, field.Path, "converted %q to a number", value)
				models.AssignPath(params, field.Path, n)
				value = n
			}
		}

		n, ok := number(value)
		if !ok {
			continue
		}

		if field.Kind == KindInteger && n != math.Trunc(n) {
			n = math.Round(n)
			models.AssignPath(params, field.Path, n)
			record(validation.CodeWrongValueType, field.Path, "rounded to %g", n)
		}

		if clamped, changed := clamp(field, n); changed {
			models.AssignPath(params, field.Path, clamped)
			record(validation.CodeOutOfRange, field.Path, "replaced %g with %g", n, clamped)
		}
	}

	for _, field := range contract.Fields {
		if !field.Required || field.Default == nil {
			continue
		}

		if value, present := models.LookupPath(params, field.Path); present && value != nil {
			continue
		}

		models.AssignPath(params, field.Path, field.Default)
		record(validation.CodeMissingRequired, field.Path, "set %s to default %v", field.Path, field.Default)
	}

	return fixes
}

// parseNumber reports whether value is a string holding a number.
func parseNumber(value any) (float64, bool) {
	str, ok := value.(string)
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

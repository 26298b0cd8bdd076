package contracts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/validation"
	"github.com/xeipuuv/gojsonschema"
)

// SchemaDraft is the JSON schema dialect of generated contract schemas.
const SchemaDraft = "http://json-schema.org/draft-07/schema#"

type compiledContract struct {
	contract Contract
	schema   *gojsonschema.Schema
	// foreign holds paths that belong to other contracts only.
	foreign []string
}

// Validator checks nodes whose capability type has an explicit contract.
// Nodes of any other type are never inspected.
type Validator struct {
	contracts map[string]*compiledContract
}

// New compiles contracts into a validator.
func New(contracts ...Contract) (*Validator, error) {
	v := &Validator{contracts: make(map[string]*compiledContract, len(contracts))}

	for _, contract := range contracts {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(Schema(contract)))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema for %s: %w", contract.Type, err)
		}

		v.contracts[contract.Type] = &compiledContract{contract: contract, schema: schema}
	}

	for capability, compiled := range v.contracts {
		own := make(map[string]bool)
		for _, path := range compiled.contract.Paths() {
			own[path] = true
		}

		seen := make(map[string]bool)

		for other, otherCompiled := range v.contracts {
			if other == capability {
				continue
			}

			for _, path := range otherCompiled.contract.Paths() {
				if own[path] || seen[path] {
					continue
				}

				seen[path] = true
				compiled.foreign = append(compiled.foreign, path)
			}
		}

		sort.Strings(compiled.foreign)
	}

	return v, nil
}

// Default returns a validator over the built-in contracts.
func Default() *Validator {
	v, err := New(DefaultContracts()...)
	if err != nil {
		panic(err)
	}

	return v
}

// Contract returns the contract of a capability type.
func (v *Validator) Contract(capability string) (Contract, bool) {
	compiled, ok := v.contracts[capability]
	if !ok {
		return Contract{}, false
	}

	return compiled.contract, true
}

// Schema generates the value-type schema of a contract.
func Schema(contract Contract) *models.JSONSchema {
	schema := &models.JSONSchema{
		Schema:     SchemaDraft,
		Type:       "object",
		Title:      contract.Type,
		Properties: map[string]*models.Property{},
	}

	for _, field := range contract.Fields {
		keys := strings.Split(field.Path, ".")
		properties := schema.Properties

		for _, key := range keys[:len(keys)-1] {
			property, ok := properties[key]
			if !ok {
				property = &models.Property{Type: "object", Properties: map[string]*models.Property{}}
				properties[key] = property
			}

			properties = property.Properties
		}

		properties[keys[len(keys)-1]] = &models.Property{Type: field.Kind}
	}

	return schema
}

// Validate checks every contracted node of doc.
func (v *Validator) Validate(doc *models.WorkflowDocument) *validation.Report {
	report := &validation.Report{}

	if doc == nil {
		return report
	}

	for _, node := range doc.Nodes {
		if node != nil {
			report.Merge(v.ValidateNode(node))
		}
	}

	return report
}

// ValidateNode checks one node against its contract.
func (v *Validator) ValidateNode(node *models.NodeRecord) *validation.Report {
	report := &validation.Report{}

	compiled, ok := v.contracts[node.Type]
	if !ok {
		return report
	}

	params := node.Parameters
	if params == nil {
		params = map[string]any{}
	}

	checkSynonyms(compiled.contract, node.Name, params, report)
	checkForeign(compiled, node.Name, params, report)
	checkTypes(compiled, node.Name, params, report)
	checkFields(compiled.contract, node.Name, params, report)
	checkDeprecated(compiled.contract, node.Name, params, report)

	return report
}

func checkSynonyms(contract Contract, node string, params map[string]any, report *validation.Report) {
	for _, field := range contract.Fields {
		for _, synonym := range field.Synonyms {
			if _, present := models.LookupPath(params, synonym); !present {
				continue
			}

			report.Add(validation.Issue{
				Severity: validation.SeverityError,
				Code:     validation.CodeMisspelledField,
				Node:     node,
				Field:    synonym,
				Message:  fmt.Sprintf("%s expects %s", contract.Type, field.Path),
				Fixable:  true,
			})
		}
	}
}

func checkForeign(compiled *compiledContract, node string, params map[string]any, report *validation.Report) {
	for _, path := range compiled.foreign {
		if _, present := models.LookupPath(params, path); !present {
			continue
		}

		report.Add(validation.Issue{
			Severity: validation.SeverityError,
			Code:     validation.CodeForeignField,
			Node:     node,
			Field:    path,
			Message:  fmt.Sprintf("%s has no meaning for %s", path, compiled.contract.Type),
			Fixable:  true,
		})
	}
}

func checkTypes(compiled *compiledContract, node string, params map[string]any, report *validation.Report) {
	result, err := compiled.schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		report.Errorf(validation.CodeWrongValueType, node, "", "parameters cannot be checked: %v", err)

		return
	}

	for _, desc := range result.Errors() {
		value, _ := models.LookupPath(params, desc.Field())
		_, numericString := parseNumber(value)

		report.Add(validation.Issue{
			Severity: validation.SeverityError,
			Code:     validation.CodeWrongValueType,
			Node:     node,
			Field:    desc.Field(),
			Message:  desc.Description(),
			Fixable:  numericString,
		})
	}
}

func checkFields(contract Contract, node string, params map[string]any, report *validation.Report) {
	for _, field := range contract.Fields {
		value, present := models.LookupPath(params, field.Path)
		if !present || value == nil {
			if field.Required {
				report.Add(validation.Issue{
					Severity: validation.SeverityError,
					Code:     validation.CodeMissingRequired,
					Node:     node,
					Field:    field.Path,
					Message:  fmt.Sprintf("%s requires %s", contract.Type, field.Path),
					Fixable:  field.Default != nil,
				})
			}

			continue
		}

		n, ok := number(value)
		if !ok {
			continue
		}

		if _, changed := clamp(field, n); changed {
			report.Add(validation.Issue{
				Severity: validation.SeverityError,
				Code:     validation.CodeOutOfRange,
				Node:     node,
				Field:    field.Path,
				Message:  fmt.Sprintf("%g is outside %s", n, describeRange(field)),
				Fixable:  true,
			})
		}
	}
}

func checkDeprecated(contract Contract, node string, params map[string]any, report *validation.Report) {
	for _, deprecation := range contract.Deprecated {
		value, _ := models.LookupPath(params, deprecation.Path)

		str, ok := value.(string)
		if !ok || !deprecation.Pattern.MatchString(str) {
			continue
		}

		report.Warnf(validation.CodeDeprecatedValue, node, deprecation.Path, "%q: %s", str, deprecation.Note)
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// clamp moves n to the nearest valid value of field. changed is false when n
// is already within range.
func clamp(field Field, n float64) (float64, bool) {
	if field.Min != nil {
		if field.ExclusiveMin && n <= *field.Min {
			if field.Substitute != nil {
				return *field.Substitute, true
			}

			return *field.Min, true
		}

		if !field.ExclusiveMin && n < *field.Min {
			return *field.Min, true
		}
	}

	if field.Max != nil && n > *field.Max {
		return *field.Max, true
	}

	return n, false
}

func describeRange(field Field) string {
	lower := "(-inf"
	if field.Min != nil {
		lower = fmt.Sprintf("[%g", *field.Min)
		if field.ExclusiveMin {
			lower = fmt.Sprintf("(%g", *field.Min)
		}
	}

	upper := "+inf)"
	if field.Max != nil {
		upper = fmt.Sprintf("%g]", *field.Max)
	}

	return lower + ", " + upper
}

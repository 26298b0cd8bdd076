package catalog

import (
	"strings"

	"github.com/dukex/flowsmith/pkg/models"
)

// Parameters is a typed view over a node's parameter map. Unknown capability
// types decode to OpaqueParameters so generic checks still apply.
type Parameters interface {
	Raw() map[string]any
	isParameters()
}

// ScriptParameters is the view of a script node.
type ScriptParameters struct {
	Language string
	Field    string
	Code     any
	Values   map[string]any
}

// QueryParameters is the view of a database query node.
type QueryParameters struct {
	Provider string
	Query    any
	Values   map[string]any
}

// PromptParameters is the view of a node carrying a scalar prompt.
type PromptParameters struct {
	Field  string
	Prompt any
	Values map[string]any
}

// TemplateParameters is the view of a templated-text node.
type TemplateParameters struct {
	Field  string
	Body   any
	Values map[string]any
}

// ProviderParameters is the view of a model invocation node.
type ProviderParameters struct {
	Provider string
	Model    string
	Options  map[string]any
	Values   map[string]any
}

// CombinatorParameters is the view of a combining node.
type CombinatorParameters struct {
	Combinator Combinator
	Mode       string
	Companion  string
	Values     map[string]any
}

// OpaqueParameters is the fallback for unrecognized capability types.
type OpaqueParameters struct {
	Values map[string]any
}

func (p ScriptParameters) Raw() map[string]any     { return p.Values }
func (p QueryParameters) Raw() map[string]any      { return p.Values }
func (p PromptParameters) Raw() map[string]any     { return p.Values }
func (p TemplateParameters) Raw() map[string]any   { return p.Values }
func (p ProviderParameters) Raw() map[string]any   { return p.Values }
func (p CombinatorParameters) Raw() map[string]any { return p.Values }
func (p OpaqueParameters) Raw() map[string]any     { return p.Values }

func (ScriptParameters) isParameters()     {}
func (QueryParameters) isParameters()      {}
func (PromptParameters) isParameters()     {}
func (TemplateParameters) isParameters()   {}
func (ProviderParameters) isParameters()   {}
func (CombinatorParameters) isParameters() {}
func (OpaqueParameters) isParameters()     {}

// ProviderFamily is the capability family of model invocation nodes.
const ProviderFamily = "ai"

// Decode returns the typed view of node's parameters.
func Decode(node *models.NodeRecord) Parameters {
	values := node.Parameters
	if values == nil {
		values = map[string]any{}
	}

	if combinator, ok := Combinators[node.Type]; ok {
		mode, _ := values[combinator.ModeField].(string)
		companion, _ := values[combinator.CompanionField].(string)

		return CombinatorParameters{Combinator: combinator, Mode: mode, Companion: companion, Values: values}
	}

	entry, ok := Lookup(node.Type)
	if !ok {
		return OpaqueParameters{Values: values}
	}

	if entry.Shape == ShapeMessageList {
		model, _ := values["model"].(string)
		options, _ := values["options"].(map[string]any)

		return ProviderParameters{
			Provider: strings.TrimPrefix(node.Type, ProviderFamily+"."),
			Model:    model,
			Options:  options,
			Values:   values,
		}
	}

	fields := entry.FieldsFor(node)
	if len(fields) == 0 {
		return OpaqueParameters{Values: values}
	}

	field := fields[0]
	content, _ := models.LookupPath(values, field.Path)

	switch entry.ContentType {
	case models.ContentTypeScript:
		return ScriptParameters{Language: field.Subtype, Field: field.Path, Code: content, Values: values}
	case models.ContentTypeQuery:
		return QueryParameters{Provider: field.Subtype, Query: content, Values: values}
	case models.ContentTypePrompt:
		return PromptParameters{Field: field.Path, Prompt: content, Values: values}
	case models.ContentTypeTemplate:
		return TemplateParameters{Field: field.Path, Body: content, Values: values}
	default:
		return OpaqueParameters{Values: values}
	}
}

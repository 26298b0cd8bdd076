// Package contracts validates provider-specific parameters of model
// invocation nodes against static per-provider contracts.
package contracts

import (
	"regexp"
)

// Kinds of contract field values, named after their JSON schema types.
const (
	KindString  = "string"
	KindNumber  = "number"
	KindInteger = "integer"
)

// Field is one parameter governed by a contract.
type Field struct {
	// Path is the canonical dotted parameter path.
	Path string
	Kind string

	Required bool
	// Default is injected by auto-fix when a required field is missing. A
	// required field without default cannot be fixed.
	Default any

	Min          *float64
	Max          *float64
	ExclusiveMin bool
	// Substitute replaces values at or below an exclusive minimum.
	Substitute *float64

	// Synonyms are dotted paths other conventions use for the same field.
	Synonyms []string
}

// Deprecation flags values matching Pattern at Path.
type Deprecation struct {
	Path    string
	Pattern *regexp.Regexp
	Note    string
}

// Contract is the static parameter contract of one capability type.
type Contract struct {
	Type       string
	Fields     []Field
	Deprecated []Deprecation
}

// Paths returns every canonical and synonym path the contract knows.
func (c Contract) Paths() []string {
	paths := make([]string, 0, len(c.Fields))

	for _, field := range c.Fields {
		paths = append(paths, field.Path)
		paths = append(paths, field.Synonyms...)
	}

	return paths
}

func bound(v float64) *float64 {
	return &v
}

func model(patterns ...string) (Field, []Deprecation) {
	deprecations := make([]Deprecation, 0, len(patterns))
	for _, pattern := range patterns {
		deprecations = append(deprecations, Deprecation{
			Path:    "model",
			Pattern: regexp.MustCompile(pattern),
			Note:    "model family is discontinued",
		})
	}

	return Field{Path: "model", Kind: KindString, Required: true}, deprecations
}

func ranged(path, kind string, lo, hi float64, synonyms ...string) Field {
	return Field{Path: path, Kind: kind, Min: bound(lo), Max: bound(hi), Synonyms: synonyms}
}

func atLeast(path, kind string, lo float64, synonyms ...string) Field {
	return Field{Path: path, Kind: kind, Min: bound(lo), Synonyms: synonyms}
}

func positive(path, kind string, hi *float64, substitute float64, synonyms ...string) Field {
	return Field{
		Path:         path,
		Kind:         kind,
		Min:          bound(0),
		Max:          hi,
		ExclusiveMin: true,
		Substitute:   bound(substitute),
		Synonyms:     synonyms,
	}
}

// DefaultContracts returns the built-in provider contracts.
func DefaultContracts() []Contract {
	openaiModel, openaiDeprecated := model(`^text-davinci-`, `^code-`, `^gpt-3\.5-turbo-0301$`)
	anthropicModel, anthropicDeprecated := model(`^claude-instant`, `^claude-1`, `^claude-2`)
	cohereModel, cohereDeprecated := model(`^command-light-nightly$`)
	geminiModel, geminiDeprecated := model(`^gemini-1\.0-`, `^palm`)
	ollamaModel, _ := model()

	return []Contract{
		{
			Type: "ai.openai",
			Fields: []Field{
				openaiModel,
				ranged("options.temperature", KindNumber, 0, 2),
				atLeast("options.maxTokens", KindInteger, 1),
				ranged("options.topP", KindNumber, 0, 1),
				ranged("options.frequencyPenalty", KindNumber, -2, 2),
			},
			Deprecated: openaiDeprecated,
		},
		{
			Type: "ai.anthropic",
			Fields: []Field{
				anthropicModel,
				ranged("options.temperature", KindNumber, 0, 1),
				{
					Path:     "options.maxTokensToSample",
					Kind:     KindInteger,
					Required: true,
					Default:  4096.0,
					Min:      bound(1),
					Synonyms: []string{"options.max_tokens", "options.maxTokens"},
				},
				atLeast("options.topK", KindInteger, 0, "options.top_k"),
				ranged("options.topP", KindNumber, 0, 1, "options.top_p"),
			},
			Deprecated: anthropicDeprecated,
		},
		{
			Type: "ai.cohere",
			Fields: []Field{
				cohereModel,
				ranged("options.temperature", KindNumber, 0, 5),
				atLeast("options.maxTokens", KindInteger, 1, "options.max_tokens"),
				ranged("options.p", KindNumber, 0, 1, "options.topP"),
				ranged("options.k", KindInteger, 0, 500, "options.topK"),
			},
			Deprecated: cohereDeprecated,
		},
		{
			Type: "ai.gemini",
			Fields: []Field{
				geminiModel,
				ranged("options.temperature", KindNumber, 0, 2),
				atLeast("options.maxOutputTokens", KindInteger, 1, "options.maxTokens", "options.max_output_tokens"),
				positive("options.topK", KindInteger, nil, 1, "options.top_k"),
				ranged("options.topP", KindNumber, 0, 1, "options.top_p"),
			},
			Deprecated: geminiDeprecated,
		},
		{
			Type: "ai.ollama",
			Fields: []Field{
				ollamaModel,
				positive("options.temperature", KindNumber, bound(2), 0.01),
				atLeast("options.num_predict", KindInteger, 1, "options.maxTokens"),
				atLeast("options.top_k", KindInteger, 0, "options.topK"),
			},
		},
	}
}

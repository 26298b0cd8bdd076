package catalog

import "strings"

// FallbackVersion is used for capability types missing from the version table.
const FallbackVersion = 1.0

var defaultVersions = map[string]float64{
	"core.code":          2,
	"core.function":      1,
	"core.html":          1.2,
	"core.httpRequest":   4.2,
	"core.if":            2,
	"core.manualTrigger": 1,
	"core.merge":         3,
	"core.schedule":      1.2,
	"core.set":           3.4,
	"core.switch":        3,
	"core.webhook":       2,
	"core.errorTrigger":  1,
	"data.postgres":      2.5,
	"data.mysql":         2.4,
	"data.mssql":         1.1,
	"ai.openai":          1.8,
	"ai.anthropic":       1.3,
	"ai.cohere":          1,
	"ai.gemini":          1,
	"ai.ollama":          1,
	"ai.agent":           1.7,
	"comms.email":        2.1,
	"comms.slack":        2.3,
}

// DefaultVersion returns the version to backfill for a capability type.
func DefaultVersion(capability string) float64 {
	if version, ok := defaultVersions[capability]; ok {
		return version
	}

	return FallbackVersion
}

var entryCapabilities = map[string]bool{
	"core.manualTrigger": true,
	"core.webhook":       true,
	"core.schedule":      true,
	"core.errorTrigger":  true,
	"core.formTrigger":   true,
}

// EntryFamily is the capability family whose members always start a workflow.
const EntryFamily = "trigger"

// IsEntry reports whether nodes of this capability type may have no inbound edge.
func IsEntry(capability string) bool {
	if strings.HasPrefix(capability, EntryFamily+".") {
		return true
	}

	return entryCapabilities[capability]
}

// Combinator describes the known-bad configuration of a combining node and
// the known-good replacement.
type Combinator struct {
	Type           string
	ModeField      string
	BadMode        string
	GoodMode       string
	CompanionField string
	CompanionValue string
}

// Combinators lists combinator capabilities with a deterministic fix.
var Combinators = map[string]Combinator{
	"core.merge": {
		Type:           "core.merge",
		ModeField:      "mode",
		BadMode:        "mergeByIndex",
		GoodMode:       "combine",
		CompanionField: "combineBy",
		CompanionValue: "combineByPosition",
	},
}

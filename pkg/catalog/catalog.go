// Package catalog holds the static capability tables: which node types embed
// externalizable content and where, their structural shape, default type
// versions and which capabilities may start a workflow.
package catalog

import (
	"github.com/dukex/flowsmith/pkg/models"
)

// Shape is the structural form a content field takes inside node parameters.
type Shape string

const (
	// ShapeScalar is a single string field.
	ShapeScalar Shape = "scalar"
	// ShapeMessageList is an array of {role, content} chat messages.
	ShapeMessageList Shape = "message-list"
	// ShapeTemplatedText is text with an optional leading expression marker.
	ShapeTemplatedText Shape = "templated-text"
)

// DefaultMessageRole is the role given to the single message rebuilt from a
// message-list file.
const DefaultMessageRole = "user"

// Field is one externalizable parameter of a capability type.
type Field struct {
	Path      string
	Extension string
	Subtype   string

	// When restricts the field to nodes whose parameters satisfy it.
	When func(parameters map[string]any) bool
}

// Entry classifies a capability type that embeds content.
type Entry struct {
	Type        string
	ContentType models.ContentType
	Directory   string
	Shape       Shape
	Fields      []Field
}

// FieldsFor returns the fields that apply to node.
func (e *Entry) FieldsFor(node *models.NodeRecord) []Field {
	fields := make([]Field, 0, len(e.Fields))

	for _, field := range e.Fields {
		if field.When != nil && !field.When(node.Parameters) {
			continue
		}

		fields = append(fields, field)
	}

	return fields
}

// Directories maps each content type to its subdirectory under the content root.
var Directories = map[models.ContentType]string{
	models.ContentTypeScript:   "scripts",
	models.ContentTypePrompt:   "prompts",
	models.ContentTypeQuery:    "queries",
	models.ContentTypeTemplate: "templates",
}

func languageIs(values ...string) func(map[string]any) bool {
	return func(parameters map[string]any) bool {
		language, _ := parameters["language"].(string)
		if language == "" {
			language = "javaScript"
		}

		for _, value := range values {
			if language == value {
				return true
			}
		}

		return false
	}
}

func scriptEntry(capability string, fields ...Field) *Entry {
	return &Entry{
		Type:        capability,
		ContentType: models.ContentTypeScript,
		Directory:   Directories[models.ContentTypeScript],
		Shape:       ShapeScalar,
		Fields:      fields,
	}
}

func queryEntry(capability, provider string) *Entry {
	return &Entry{
		Type:        capability,
		ContentType: models.ContentTypeQuery,
		Directory:   Directories[models.ContentTypeQuery],
		Shape:       ShapeScalar,
		Fields:      []Field{{Path: "query", Extension: ".sql", Subtype: provider}},
	}
}

func chatEntry(capability, provider string) *Entry {
	return &Entry{
		Type:        capability,
		ContentType: models.ContentTypePrompt,
		Directory:   Directories[models.ContentTypePrompt],
		Shape:       ShapeMessageList,
		Fields:      []Field{{Path: "messages.values", Extension: ".md", Subtype: provider}},
	}
}

func templateEntry(capability, path, extension, format string) *Entry {
	return &Entry{
		Type:        capability,
		ContentType: models.ContentTypeTemplate,
		Directory:   Directories[models.ContentTypeTemplate],
		Shape:       ShapeTemplatedText,
		Fields:      []Field{{Path: path, Extension: extension, Subtype: format}},
	}
}

var entries = map[string]*Entry{}

func register(entry *Entry) {
	entries[entry.Type] = entry
}

func init() {
	register(scriptEntry("core.code",
		Field{Path: "jsCode", Extension: ".js", Subtype: "javascript", When: languageIs("javaScript")},
		Field{Path: "pythonCode", Extension: ".py", Subtype: "python", When: languageIs("python", "pythonNative")},
	))
	register(scriptEntry("core.function",
		Field{Path: "functionCode", Extension: ".js", Subtype: "javascript"},
	))

	register(queryEntry("data.postgres", "postgres"))
	register(queryEntry("data.mysql", "mysql"))
	register(queryEntry("data.mssql", "mssql"))

	register(chatEntry("ai.openai", "openai"))
	register(chatEntry("ai.anthropic", "anthropic"))
	register(chatEntry("ai.cohere", "cohere"))
	register(chatEntry("ai.gemini", "gemini"))
	register(chatEntry("ai.ollama", "ollama"))
	register(&Entry{
		Type:        "ai.agent",
		ContentType: models.ContentTypePrompt,
		Directory:   Directories[models.ContentTypePrompt],
		Shape:       ShapeScalar,
		Fields:      []Field{{Path: "options.systemMessage", Extension: ".md", Subtype: "agent"}},
	})

	register(templateEntry("core.html", "html", ".html", "html"))
	register(templateEntry("comms.email", "html", ".html", "html"))
	register(templateEntry("comms.slack", "text", ".txt", "text"))
}

// Lookup returns the classification entry for an exact capability type.
func Lookup(capability string) (*Entry, bool) {
	entry, ok := entries[capability]

	return entry, ok
}

package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/dukex/flowsmith/pkg/catalog"
	"github.com/dukex/flowsmith/pkg/models"
	"github.com/go-playground/validator/v10"
)

var (
	typePattern  = regexp.MustCompile(`^[a-z][a-z0-9]*(\.[A-Za-z][A-Za-z0-9]*)+$`)
	nodeIndexRef = regexp.MustCompile(`\.Nodes\[(\d+)\]`)
)

// DefaultAllowedFamilies are the capability families accepted by default.
var DefaultAllowedFamilies = []string{"core", "data", "ai", "comms", "trigger", "app"}

// DefaultBannedTokens catch placeholder capability types left behind by
// generators and copy-paste.
var DefaultBannedTokens = []string{"mock", "placeholder", "fake", "dummy", "stub", "todo", "example"}

// Config holds the structural rules.
type Config struct {
	AllowedFamilies []string
	BannedTokens    []string
	// RequireID makes a missing document id an error; compiled documents always carry one.
	RequireID bool
}

// DefaultConfig returns the default rules.
func DefaultConfig() Config {
	return Config{
		AllowedFamilies: DefaultAllowedFamilies,
		BannedTokens:    DefaultBannedTokens,
	}
}

// Validator checks documents independently of any provider specifics.
type Validator struct {
	validate  *validator.Validate
	families  map[string]bool
	banned    map[string]bool
	requireID bool
}

// New creates a structural validator.
func New(cfg Config) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	v := &Validator{
		validate:  validate,
		families:  make(map[string]bool, len(cfg.AllowedFamilies)),
		banned:    make(map[string]bool, len(cfg.BannedTokens)),
		requireID: cfg.RequireID,
	}

	for _, family := range cfg.AllowedFamilies {
		v.families[family] = true
	}

	for _, token := range cfg.BannedTokens {
		v.banned[strings.ToLower(token)] = true
	}

	return v
}

// Validate returns every structural issue of doc. Disabled nodes are checked too.
func (v *Validator) Validate(doc *models.WorkflowDocument) *Report {
	report := &Report{}

	if doc == nil {
		report.Errorf(CodeMissingField, "", "", "document is empty")

		return report
	}

	v.checkFields(doc, report)
	v.checkNodes(doc, report)
	v.checkEdges(doc, report)

	return report
}

func (v *Validator) checkFields(doc *models.WorkflowDocument, report *Report) {
	err := v.validate.Struct(doc)

	var fieldErrors validator.ValidationErrors

	switch {
	case errors.As(err, &fieldErrors):
		for _, fe := range fieldErrors {
			report.Errorf(CodeMissingField, nodeName(doc, fe.StructNamespace()), fe.Field(),
				"%s failed the %q rule", fe.Field(), fe.Tag())
		}
	case err != nil:
		report.Errorf(CodeMissingField, "", "", "%v", err)
	}

	if v.requireID && doc.ID == "" {
		report.Errorf(CodeMissingField, "", "id", "id is required")
	}
}

// nodeName maps a validator namespace like "WorkflowDocument.Nodes[2].ID" to
// the node it belongs to.
func nodeName(doc *models.WorkflowDocument, namespace string) string {
	match := nodeIndexRef.FindStringSubmatch(namespace)
	if match == nil {
		return ""
	}

	index, err := strconv.Atoi(match[1])
	if err != nil || index >= len(doc.Nodes) || doc.Nodes[index] == nil {
		return ""
	}

	if doc.Nodes[index].Name == "" {
		return "#" + match[1]
	}

	return doc.Nodes[index].Name
}

func (v *Validator) checkNodes(doc *models.WorkflowDocument, report *Report) {
	ids := make(map[string]bool, len(doc.Nodes))
	names := make(map[string]bool, len(doc.Nodes))
	inbound := doc.Connections.InboundCount()

	for _, node := range doc.Nodes {
		if node == nil {
			report.Errorf(CodeMissingField, "", "nodes", "node entry is null")

			continue
		}

		if node.ID != "" {
			if ids[node.ID] {
				report.Errorf(CodeDuplicateNodeID, node.Name, "id", "node id %q is used more than once", node.ID)
			}

			ids[node.ID] = true
		}

		if node.Name != "" {
			if names[node.Name] {
				report.Errorf(CodeDuplicateNodeName, node.Name, "name", "node name is used more than once")
			}

			names[node.Name] = true
		}

		if node.Type == "" {
			continue
		}

		v.checkType(node, report)
		checkCombinator(node, report)

		if node.TypeVersion == nil {
			report.Warnf(CodeMissingVersion, node.Name, "typeVersion", "typeVersion is missing")
			report.markFixable()
		}

		if inbound[node.Name] == 0 && !catalog.IsEntry(node.Type) {
			report.Warnf(CodeUnreachableNode, node.Name, "", "node has no inbound connection and %s is not an entry capability", node.Type)
		}

		if _, _, ok := node.Coordinates(); !ok {
			report.Warnf(CodeMissingPosition, node.Name, "position", "position is missing or malformed")
			report.markFixable()
		}
	}
}

func (v *Validator) checkType(node *models.NodeRecord, report *Report) {
	for _, token := range Tokenize(node.Type) {
		if v.banned[token] {
			report.Errorf(CodeBannedToken, node.Name, "type", "capability type %q contains banned token %q", node.Type, token)

			break
		}
	}

	if !typePattern.MatchString(node.Type) {
		report.Errorf(CodeInvalidType, node.Name, "type", "capability type %q does not match family.kind naming", node.Type)

		return
	}

	if !v.families[node.Family()] {
		report.Errorf(CodeFamilyNotAllowed, node.Name, "type", "capability family %q is not allowed", node.Family())
	}
}

func checkCombinator(node *models.NodeRecord, report *Report) {
	params, ok := catalog.Decode(node).(catalog.CombinatorParameters)
	if !ok {
		return
	}

	combinator := params.Combinator

	switch {
	case params.Mode == combinator.BadMode:
		report.Errorf(CodeBadCombinator, node.Name, combinator.ModeField,
			"mode %q always produces empty output, use %q", params.Mode, combinator.GoodMode)
		report.markFixable()
	case params.Mode == combinator.GoodMode && params.Companion == "":
		report.Errorf(CodeMissingCompanion, node.Name, combinator.CompanionField,
			"mode %q requires %s", params.Mode, combinator.CompanionField)
		report.markFixable()
	}
}

func (v *Validator) checkEdges(doc *models.WorkflowDocument, report *Report) {
	names := make(map[string]bool, len(doc.Nodes))

	for _, node := range doc.Nodes {
		if node != nil {
			names[node.Name] = true
		}
	}

	for _, edge := range doc.Edges() {
		if !names[edge.SourceNode] {
			report.Errorf(CodeDanglingEdge, edge.SourceNode, "connections", "connection source %q does not exist", edge.SourceNode)
		}

		if !names[edge.TargetNode] {
			report.Errorf(CodeDanglingEdge, edge.SourceNode, "connections", "connection target %q does not exist", edge.TargetNode)
		}

		if edge.SourceIndex < 0 || edge.TargetIndex < 0 {
			report.Errorf(CodeNegativeIndex, edge.SourceNode, "connections", "connection to %q has a negative index", edge.TargetNode)
		}
	}
}

func (r *Report) markFixable() {
	if len(r.Issues) > 0 {
		r.Issues[len(r.Issues)-1].Fixable = true
	}
}

// Tokenize splits a capability type into lowercase words on separators and
// camelCase boundaries: "app.mockHTTPServer" -> app, mock, http, server.
func Tokenize(value string) []string {
	var (
		tokens  []string
		current []rune
	)

	flush := func() {
		if len(current) > 0 {
			tokens = append(tokens, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	runes := []rune(value)

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()

			continue
		}

		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		current = append(current, r)
	}

	flush()

	return tokens
}

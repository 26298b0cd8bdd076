package validation

import (
	"encoding/json"
	"testing"

	"github.com/dukex/flowsmith/pkg/models"
	"github.com/dukex/flowsmith/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *models.WorkflowDocument {
	return testutil.CreateTestDocumentWithNodes("Valid")
}

func TestValidator_ValidDocument(t *testing.T) {
	report := New(DefaultConfig()).Validate(validDocument())

	assert.Empty(t, report.Issues)
	assert.False(t, report.HasErrors())
}

func TestValidator_BannedTokenRejected(t *testing.T) {
	tests := []struct {
		name     string
		nodeType string
	}{
		{"prefix token", "core.mockHttp"},
		{"camel case token", "app.salesforcePlaceholder"},
		{"dotted token", "data.fake.postgres"},
		{"acronym boundary", "app.DummyAPI"},
		{"trailing token", "comms.slackStub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			doc.Nodes[1].Type = tt.nodeType

			report := New(DefaultConfig()).Validate(doc)

			banned := report.WithCode(CodeBannedToken)
			require.Len(t, banned, 1)
			assert.Equal(t, "Transform", banned[0].Node)
			assert.True(t, report.HasErrors())
		})
	}
}

func TestValidator_BannedTokenMatchesWholeWords(t *testing.T) {
	doc := validDocument()
	doc.Nodes[1].Type = "app.stubhub"

	report := New(DefaultConfig()).Validate(doc)
	assert.Empty(t, report.WithCode(CodeBannedToken))
}

func TestValidator_TypeNaming(t *testing.T) {
	doc := validDocument()
	doc.Nodes[1].Type = "Code"

	report := New(DefaultConfig()).Validate(doc)
	require.Len(t, report.WithCode(CodeInvalidType), 1)

	doc.Nodes[1].Type = "vendor.thing"
	report = New(DefaultConfig()).Validate(doc)
	require.Len(t, report.WithCode(CodeFamilyNotAllowed), 1)

	cfg := DefaultConfig()
	cfg.AllowedFamilies = append(cfg.AllowedFamilies, "vendor")
	report = New(cfg).Validate(doc)
	assert.Empty(t, report.WithCode(CodeFamilyNotAllowed))
}

func TestValidator_RequiredFields(t *testing.T) {
	doc := &models.WorkflowDocument{
		Nodes: []*models.NodeRecord{{Name: "No Id", Type: "core.manualTrigger"}},
	}

	report := New(Config{AllowedFamilies: DefaultAllowedFamilies, RequireID: true}).Validate(doc)

	fields := make([]string, 0)
	for _, issue := range report.WithCode(CodeMissingField) {
		fields = append(fields, issue.Field)
	}

	assert.ElementsMatch(t, []string{"name", "connections", "id", "id"}, fields)
	assert.Len(t, report.ForNode("No Id"), 3)
}

func TestValidator_DuplicatesAndDanglingEdges(t *testing.T) {
	doc := validDocument()
	doc.Nodes = append(doc.Nodes, testutil.CreateTestNode(testutil.WithID("code-1"), testutil.WithName("Transform")))
	testutil.Connect(doc, "Transform", "Missing")

	report := New(DefaultConfig()).Validate(doc)

	assert.Len(t, report.WithCode(CodeDuplicateNodeID), 1)
	assert.Len(t, report.WithCode(CodeDuplicateNodeName), 1)
	require.Len(t, report.WithCode(CodeDanglingEdge), 1)
	assert.Contains(t, report.WithCode(CodeDanglingEdge)[0].Message, "Missing")
}

func TestValidator_Warnings(t *testing.T) {
	doc := validDocument()
	doc.Nodes = append(doc.Nodes, testutil.CreateTestNode(
		testutil.WithName("Orphan"),
		testutil.WithTypeVersion(nil),
		testutil.WithoutPosition(),
		testutil.WithDisabled(),
	))

	report := New(DefaultConfig()).Validate(doc)

	assert.False(t, report.HasErrors())
	assert.Len(t, report.WithCode(CodeUnreachableNode), 1)
	assert.Len(t, report.WithCode(CodeMissingVersion), 1)
	assert.Len(t, report.WithCode(CodeMissingPosition), 1)

	for _, issue := range report.Warnings() {
		assert.Equal(t, "Orphan", issue.Node)
	}
}

func TestValidator_EntryCapabilitiesNeedNoInbound(t *testing.T) {
	doc := testutil.CreateTestDocument("Entries")
	for _, capability := range []string{"core.webhook", "core.schedule", "core.errorTrigger", "trigger.github"} {
		doc.Nodes = append(doc.Nodes, testutil.CreateTestNode(testutil.WithName(capability), testutil.WithType(capability)))
	}

	report := New(DefaultConfig()).Validate(doc)
	assert.Empty(t, report.WithCode(CodeUnreachableNode))
}

func TestValidator_MalformedPosition(t *testing.T) {
	doc := validDocument()
	doc.Nodes[1].Position = json.RawMessage(`{"x": 1}`)

	report := New(DefaultConfig()).Validate(doc)
	assert.Len(t, report.WithCode(CodeMissingPosition), 1)
}

func TestValidator_NilDocument(t *testing.T) {
	report := New(DefaultConfig()).Validate(nil)
	assert.True(t, report.HasErrors())
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"app", "mock", "http", "server"}, Tokenize("app.mockHTTPServer"))
	assert.Equal(t, []string{"core", "todo", "list"}, Tokenize("core.todo_list"))
	assert.Equal(t, []string{"ai", "gpt4", "chat"}, Tokenize("ai.gpt4Chat"))
}

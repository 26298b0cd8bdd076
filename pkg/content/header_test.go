package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderStyles_RenderThenStrip(t *testing.T) {
	header := Header{Node: "Enrich Order", Workflow: "Orders Sync", Subtype: "javascript"}
	body := "const total = items.length;\nreturn [{ json: { total } }];\n"

	for _, extension := range []string{".js", ".py", ".sql", ".md", ".html", ".txt"} {
		t.Run(extension, func(t *testing.T) {
			style := StyleFor(extension)

			stripped, parsed, ok := style.Strip(style.Render(header) + body)
			require.True(t, ok)
			assert.Equal(t, body, stripped)
			assert.Equal(t, header, parsed)
		})
	}
}

func TestHeaderStyles_StripWithoutHeaderIsNoop(t *testing.T) {
	text := "SELECT * FROM orders;\n"

	for _, extension := range []string{".js", ".py", ".sql", ".md", ".html"} {
		stripped, _, ok := StyleFor(extension).Strip(text)
		assert.False(t, ok, extension)
		assert.Equal(t, text, stripped, extension)
	}
}

func TestHeaderStyles_ExactFormats(t *testing.T) {
	header := Header{Node: "Load", Workflow: "Nightly", Subtype: "postgres"}

	assert.Equal(t,
		"-- @flowsmith provenance\n-- node: Load\n-- workflow: Nightly\n-- subtype: postgres\n\n",
		StyleFor(".sql").Render(header))

	assert.Equal(t,
		"/**\n * @flowsmith provenance\n * node: Load\n * workflow: Nightly\n * subtype: postgres\n */\n\n",
		StyleFor(".js").Render(header))

	assert.Equal(t,
		"---\nnode: Load\nworkflow: Nightly\nsubtype: postgres\n---\n\n",
		StyleFor(".md").Render(header))
}

func TestHeaderStyles_SanitizesCommentTerminators(t *testing.T) {
	header := Header{Node: "weird */ name\nsecond", Workflow: "w", Subtype: "javascript"}
	rendered := StyleFor(".js").Render(header)

	assert.Equal(t, 1, strings.Count(rendered, "*/"))

	body := "return 1;"
	stripped, parsed, ok := StyleFor(".js").Strip(rendered + body)
	require.True(t, ok)
	assert.Equal(t, body, stripped)
	assert.Equal(t, "weird * / name second", parsed.Node)
}

func TestFrontMatter_QuotedValues(t *testing.T) {
	header := Header{Node: "yes: no", Workflow: "#1 flow", Subtype: "openai"}
	body := "### system\nYou are terse.\n"

	stripped, parsed, ok := FrontMatter.Strip(FrontMatter.Render(header) + body)
	require.True(t, ok)
	assert.Equal(t, body, stripped)
	assert.Equal(t, header, parsed)
}

func TestHeaderStyles_ForeignHeaderIsNotStripped(t *testing.T) {
	sqlHeader := StyleFor(".sql").Render(Header{Node: "n", Workflow: "w", Subtype: "s"})
	text := sqlHeader + "SELECT 1;"

	stripped, _, ok := StyleFor(".js").Strip(text)
	assert.False(t, ok)
	assert.Equal(t, text, stripped)
}

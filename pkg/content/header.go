// Package content implements the on-disk contract for externalized content:
// provenance headers, file naming under the content root and the extraction
// metadata ledger.
package content

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProvenanceMarker opens every comment-style provenance header.
const ProvenanceMarker = "@flowsmith provenance"

// Header is the provenance block written at the top of every externalized file.
type Header struct {
	Node     string `yaml:"node"`
	Workflow string `yaml:"workflow"`
	Subtype  string `yaml:"subtype"`
}

// HeaderStyle renders and strips one header format. Both directions live on
// the same value so the format cannot drift between extraction and compilation.
type HeaderStyle interface {
	Render(h Header) string
	// Strip removes a header rendered by this style. ok is false and text is
	// returned unchanged when no such header is present.
	Strip(text string) (body string, h Header, ok bool)
}

type commentStyle struct {
	open   string
	prefix string
	suffix string
	close  string
}

var (
	blockComment = commentStyle{open: "/**", prefix: " * ", close: " */"}
	hashComment  = commentStyle{prefix: "# "}
	sqlComment   = commentStyle{prefix: "-- "}
	htmlComment  = commentStyle{prefix: "<!-- ", suffix: " -->"}
)

func (s commentStyle) sanitize(value string) string {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	if s.close != "" {
		value = strings.ReplaceAll(value, "*/", "* /")
	}

	if s.suffix != "" {
		value = strings.ReplaceAll(value, "-->", "-- >")
	}

	return strings.TrimSpace(value)
}

func (s commentStyle) line(text string) string {
	return s.prefix + text + s.suffix + "\n"
}

func (s commentStyle) Render(h Header) string {
	var b strings.Builder

	if s.open != "" {
		b.WriteString(s.open + "\n")
	}

	b.WriteString(s.line(ProvenanceMarker))
	b.WriteString(s.line("node: " + s.sanitize(h.Node)))
	b.WriteString(s.line("workflow: " + s.sanitize(h.Workflow)))
	b.WriteString(s.line("subtype: " + s.sanitize(h.Subtype)))

	if s.close != "" {
		b.WriteString(s.close + "\n")
	}

	b.WriteString("\n")

	return b.String()
}

func (s commentStyle) Strip(text string) (string, Header, bool) {
	lines := strings.SplitN(text, "\n", 7)

	offset := 0
	if s.open != "" {
		if len(lines) == 0 || lines[0] != s.open {
			return text, Header{}, false
		}

		offset = 1
	}

	if len(lines) < offset+4 || lines[offset] != s.prefix+ProvenanceMarker+s.suffix {
		return text, Header{}, false
	}

	values := make([]string, 0, 3)

	for i, key := range []string{"node", "workflow", "subtype"} {
		line := lines[offset+1+i]

		value, ok := strings.CutPrefix(line, s.prefix+key+": ")
		if !ok {
			return text, Header{}, false
		}

		value, ok = strings.CutSuffix(value, s.suffix)
		if !ok {
			return text, Header{}, false
		}

		values = append(values, value)
	}

	h := Header{Node: values[0], Workflow: values[1], Subtype: values[2]}

	rendered := s.Render(h)
	if !strings.HasPrefix(text, rendered) {
		return text, Header{}, false
	}

	return text[len(rendered):], h, true
}

type frontMatterStyle struct{}

const frontMatterDelimiter = "---\n"

func (frontMatterStyle) Render(h Header) string {
	var buf bytes.Buffer

	buf.WriteString(frontMatterDelimiter)

	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	// Encoding a flat struct of strings cannot fail.
	_ = encoder.Encode(h)
	_ = encoder.Close()

	buf.WriteString(frontMatterDelimiter)
	buf.WriteString("\n")

	return buf.String()
}

func (s frontMatterStyle) Strip(text string) (string, Header, bool) {
	if !strings.HasPrefix(text, frontMatterDelimiter) {
		return text, Header{}, false
	}

	rest := text[len(frontMatterDelimiter):]

	end := strings.Index(rest, "\n"+frontMatterDelimiter)
	if end < 0 {
		return text, Header{}, false
	}

	var h Header

	err := yaml.Unmarshal([]byte(rest[:end+1]), &h)
	if err != nil {
		return text, Header{}, false
	}

	rendered := s.Render(h)
	if !strings.HasPrefix(text, rendered) {
		return text, Header{}, false
	}

	return text[len(rendered):], h, true
}

// FrontMatter is the header style of prompt files.
var FrontMatter HeaderStyle = frontMatterStyle{}

var stylesByExtension = map[string]HeaderStyle{
	".js":   blockComment,
	".ts":   blockComment,
	".py":   hashComment,
	".sql":  sqlComment,
	".md":   FrontMatter,
	".html": htmlComment,
	".txt":  hashComment,
}

// StyleFor returns the header style used for files with the given extension.
// Unknown extensions use hash comments.
func StyleFor(extension string) HeaderStyle {
	if style, ok := stylesByExtension[strings.ToLower(extension)]; ok {
		return style
	}

	return hashComment
}

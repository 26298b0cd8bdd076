package content

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a reference key would resolve outside the content root.
var ErrOutsideRoot = errors.New("content reference escapes content root")

// SanitizeName lowercases name and reduces it to [a-z0-9_-].
func SanitizeName(name string) string {
	var b strings.Builder

	lastUnderscore := false

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)

			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')

				lastUnderscore = true
			}
		}
	}

	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		return "unnamed"
	}

	return sanitized
}

// RelativePath builds the slash-separated path of an externalized file:
// {dir}/{document}/{document}_{node}{ext}.
func RelativePath(dir, document, node, extension string) string {
	doc := SanitizeName(document)

	return path.Join(dir, doc, doc+"_"+SanitizeName(node)+extension)
}

// Root is the directory externalized content lives under.
type Root struct {
	dir string
}

// NewRoot returns a content root at dir.
func NewRoot(dir string) Root {
	return Root{dir: dir}
}

// Dir returns the root directory.
func (r Root) Dir() string {
	return r.dir
}

// Resolve maps a slash-separated reference path to a filesystem path,
// rejecting paths that leave the root.
func (r Root) Resolve(rel string) (string, error) {
	if rel == "" || path.IsAbs(rel) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}

	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, rel)
	}

	return filepath.Join(r.dir, filepath.FromSlash(cleaned)), nil
}

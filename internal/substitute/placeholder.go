// Package substitute replaces named placeholders in a template tree's file
// contents and file names.
package substitute

import (
	"bytes"
	"regexp"
	"unicode/utf8"
)

// Built-in substitution keys.
const (
	KeyProjectName = "project_name"
	KeyDescription = "description"
	KeyAuthor      = "author"
)

// tokenPattern matches {{key}} and {{ key }}. The whole name is captured up
// to the closing braces, so {{name2}} can never resolve as "name" + "2".
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// binaryProbeSize is how many leading bytes are scanned for NUL.
const binaryProbeSize = 8000

// Map holds placeholder values keyed by name.
type Map map[string]string

// NewMap merges extra into builtins. Built-in keys win on collision.
func NewMap(builtins, extra map[string]string) Map {
	m := make(Map, len(builtins)+len(extra))
	for k, v := range extra {
		m[k] = v
	}
	for k, v := range builtins {
		m[k] = v
	}
	return m
}

// Replacement is the outcome of substituting one text.
type Replacement struct {
	// Replaced is the number of tokens that resolved.
	Replaced int

	// Unresolved lists the names of tokens left verbatim, one per occurrence.
	Unresolved []string
}

// Replace substitutes every token in src in a single pass. Inserted values
// are never rescanned. Unknown tokens are left verbatim.
func (m Map) Replace(src []byte) ([]byte, Replacement) {
	var rep Replacement

	matches := tokenPattern.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, rep
	}

	var buf bytes.Buffer
	buf.Grow(len(src))

	last := 0
	for _, loc := range matches {
		name := string(src[loc[2]:loc[3]])
		value, ok := m[name]
		if !ok {
			rep.Unresolved = append(rep.Unresolved, name)
			continue
		}
		buf.Write(src[last:loc[0]])
		buf.WriteString(value)
		last = loc[1]
		rep.Replaced++
	}
	buf.Write(src[last:])

	return buf.Bytes(), rep
}

// ReplaceString is Replace for strings.
func (m Map) ReplaceString(s string) (string, Replacement) {
	out, rep := m.Replace([]byte(s))
	return string(out), rep
}

// IsBinary reports whether data fails the text probe: a NUL byte in the
// leading block or invalid UTF-8 anywhere.
func IsBinary(data []byte) bool {
	probe := data
	if len(probe) > binaryProbeSize {
		probe = probe[:binaryProbeSize]
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return true
	}
	return !utf8.Valid(data)
}

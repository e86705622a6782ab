package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes then drops combining marks, so accented header
// identifiers fold to plain ASCII before canonicalization.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var cleanReplacer = strings.NewReplacer("-", "_", " ", "_", ".", "_")

// Clean canonicalizes an attribute identifier into a column name: diacritics
// folded, separators mapped to underscores, surrounding quotes stripped,
// lowercased.
func Clean(name string) string {
	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}
	name = strings.Trim(name, `"'`)
	name = cleanReplacer.Replace(name)
	return strings.ToLower(name)
}

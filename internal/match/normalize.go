package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// honorifics stripped from the front of a name before matching.
var honorifics = map[string]bool{
	"mr":     true,
	"mrs":    true,
	"ms":     true,
	"mx":     true,
	"dr":     true,
	"prof":   true,
	"sir":    true,
	"madam":  true,
	"miss":   true,
	"rev":    true,
	"fr":     true,
	"capt":   true,
	"sgt":    true,
	"lt":     true,
	"doctor": true,
}

// stripDiacritics decomposes to NFD, drops combining marks, recomposes.
var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeString lowercases, strips diacritics and collapses whitespace.
func NormalizeString(s string) string {
	out, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

// NormalizeName applies NormalizeString and strips leading honorifics
// ("Dr. Sarah Chen" -> "sarah chen").
func NormalizeName(s string) string {
	parts := strings.Fields(NormalizeString(s))
	for len(parts) > 1 && honorifics[strings.TrimSuffix(parts[0], ".")] {
		parts = parts[1:]
	}
	return strings.Join(parts, " ")
}

// NameParts holds the positional pieces of a normalized name.
// Single-token names have an empty Last.
type NameParts struct {
	First  string
	Middle []string
	Last   string
	Full   string
}

// ExtractNameParts splits a name into first/middle/last after normalization.
func ExtractNameParts(name string) NameParts {
	full := NormalizeName(name)
	tokens := strings.Fields(full)
	np := NameParts{Full: full}
	switch len(tokens) {
	case 0:
	case 1:
		np.First = tokens[0]
	default:
		np.First = tokens[0]
		np.Last = tokens[len(tokens)-1]
		np.Middle = tokens[1 : len(tokens)-1]
	}
	return np
}

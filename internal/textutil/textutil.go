// Package textutil provides the plain-text normalization helpers used
// by the extraction pipeline.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFolder decomposes characters and drops combining marks, so that
// e.g. "é" folds to "e".
var asciiFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeWhitespace replaces any run of whitespace (CR, LF, TAB,
// SPACE) with a single space and trims the result.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Slugify turns an arbitrary string into a URL-safe slug: accents are
// folded to ASCII, the result is lowercased, every run of
// non-alphanumeric characters collapses to a single dash, and leading
// and trailing dashes are trimmed.
func Slugify(s string) string {
	folded, _, err := transform.String(asciiFolder, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastDash := true
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

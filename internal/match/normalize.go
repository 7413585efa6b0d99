package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// bracketedSpan matches one bracketed or parenthesized annotation,
// non-greedy, so "(Unabridged)" and "[Dramatized Adaptation]" drop out
// without eating the text between two separate spans.
var bracketedSpan = regexp.MustCompile(`\[[^\]]*?\]|\([^)]*?\)`)

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeTitle prepares a noisy local title for query building: diacritics
// removed, bracketed annotations dropped, whitespace trimmed. If stripping
// diacritics leaves nothing (titles in scripts that decompose badly), the
// original string is kept as-is before annotation removal.
func NormalizeTitle(raw string) string {
	out := raw
	if stripped, _, err := transform.String(diacriticStripper, raw); err == nil && strings.TrimSpace(stripped) != "" {
		out = stripped
	}
	out = bracketedSpan.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Package series normalizes series names and strips redundant series
// phrasing out of display titles. The patterns are heuristics over natural-
// language title conventions; they aim for "removes the obvious self-
// reference", not general correctness.
package series

import (
	"regexp"
	"strings"
)

var seriesTaglinePattern = regexp.MustCompile(`^(.*): A .* Series$`)

const seriesSuffix = " Series"

// Clean removes a ": A <something> Series" tagline from the effective
// series name and, when the series name ends in " Series", strips the
// family of redundant series/volume phrasings from the title. volumeDef is
// the effective volume designator as scraped, usually of the form
// ", Book 2". Returns the cleaned title and series name.
func Clean(title, seriesDef, volumeDef string) (string, string) {
	if m := seriesTaglinePattern.FindStringSubmatch(seriesDef); m != nil {
		seriesDef = m[1]
	}

	if !strings.HasSuffix(seriesDef, seriesSuffix) {
		return title, seriesDef
	}
	short := strings.TrimSuffix(seriesDef, seriesSuffix)

	volumeBare := volumeDef
	if len(volumeDef) > 2 && strings.HasPrefix(volumeDef, ", ") {
		volumeBare = volumeDef[2:]
	}

	if cleaned, ok := stripRedundantSuffix(title, short, volumeDef, volumeBare); ok {
		title = cleaned
	}
	return title, seriesDef
}

// suffixRule is one alternative of the composite cleanup pattern. keep
// reports whether a raw regex match should stand; it carries the negative
// conditions that the original phrasing expressed as lookbehinds.
type suffixRule struct {
	pattern *regexp.Regexp
	keep    func(prefix, sep string) bool
}

const sepAlt = `((: )|(, )|(- ))`

// stripRedundantSuffix tries every phrasing family against the title and
// removes the shortest matching suffix (equivalently: keeps the longest
// prefix), mirroring how a single greedy leading group would behave.
func stripRedundantSuffix(title, short, volumeDef, volumeBare string) (string, bool) {
	qShort := regexp.QuoteMeta(short)
	qVolume := regexp.QuoteMeta(volumeDef)
	qBare := regexp.QuoteMeta(volumeBare)

	rules := []suffixRule{
		// "…: <subtitle> Book 2: A Something Series"
		{pattern: mustSuffix(`: .* ` + qBare + `: A .* Series`)},
		// "…, <Short>, Book 2" (full series + volume mention)
		{pattern: mustSuffix(sepAlt + qShort + qVolume)},
		// "…, Book 2" alone, unless directly preceded by "<Short>, "
		{
			pattern: mustSuffix(sepAlt + qBare),
			keep: func(prefix, sep string) bool {
				return !(sep == ", " && strings.HasSuffix(prefix, short))
			},
		},
		// "…: The Deluxe Edition" / "…: Special Edition"
		{pattern: mustSuffix(sepAlt + `((The .*)|(Special)) Edition`)},
		// "…: A Something Adventure/Novella/Series/Saga", unless directly
		// preceded by "Book 2: "
		{
			pattern: mustSuffix(sepAlt + `An? .* ((Adventure)|(Novella)|(Series)|(Saga))`),
			keep: func(prefix, sep string) bool {
				return !(sep == ": " && strings.HasSuffix(prefix, volumeBare))
			},
		},
		// "…: A Novel of the Something"
		{pattern: mustSuffix(sepAlt + `A Novel of the .*`)},
		// "… (<Short>, Book 3; Something)"
		{pattern: mustSuffix(` \(` + qShort + `, Book \d+; .*\)`)},
	}

	best := ""
	found := false
	for _, rule := range rules {
		m := rule.pattern.FindStringSubmatch(title)
		if m == nil {
			continue
		}
		prefix := m[1]
		sep := ""
		if len(m) > 3 {
			sep = m[3]
		}
		if rule.keep != nil && !rule.keep(prefix, sep) {
			continue
		}
		if !found || len(prefix) > len(best) {
			best = prefix
			found = true
		}
	}
	if !found || best == "" {
		return title, false
	}
	return best, true
}

// mustSuffix anchors a phrasing at the end of the title behind a greedy
// prefix group. Group 1 is the prefix, group 3 the separator when the
// phrasing starts with one.
func mustSuffix(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(.*)(` + expr + `)$`)
}

// SortKey derives the sortable title: "<series><volume> - <title>", or the
// bare title when no series is known.
func SortKey(title, seriesDef, volumeDef string) string {
	parts := make([]string, 0, 2)
	if seriesDef+volumeDef != "" {
		parts = append(parts, seriesDef+volumeDef)
	}
	if title != "" {
		parts = append(parts, title)
	}
	return strings.Join(parts, " - ")
}

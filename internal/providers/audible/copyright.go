package audible

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	publicDomainYearPattern = regexp.MustCompile(`\(P\)(\d{4})`)
	phonogramTailPattern    = regexp.MustCompile(`^(.*)\(P\)`)
	digitRunPattern         = regexp.MustCompile(`\d+`)
)

// applyCopyrightOverride replaces the fallback date text with the year
// taken from the page's copyright notice, when one can be read. The books
// the override exists for are re-releases whose structured-data date is
// the audio production year, not the text's.
//
// The notice is whichever span mentions the copyright sign last. Rules,
// in order:
//   - a span that is nothing but the bare sign means the notice was split
//     across nodes; the existing date text is truncated to its year.
//   - "Public Domain" notices carry the year in a "(P)YYYY" marker.
//   - otherwise the notice is stripped of the sign and any "(P)" tail;
//     a semicolon-separated list of years yields the smallest, else the
//     first four-digit run wins.
//
// When no rule produces a year the date text is returned unchanged.
func applyCopyrightOverride(root *goquery.Selection, dateText string) string {
	notice := ""
	bareMarker := false
	root.Find("span").Each(func(_ int, span *goquery.Selection) {
		text := strings.Join(strings.Fields(span.Text()), " ")
		if !strings.Contains(text, "©") {
			return
		}
		if text == "©" {
			bareMarker = true
			notice = ""
			return
		}
		notice = text
	})

	if notice == "" {
		if bareMarker && len(dateText) > 4 {
			return dateText[:4]
		}
		return dateText
	}

	if strings.Contains(notice, "Public Domain") {
		if m := publicDomainYearPattern.FindStringSubmatch(notice); m != nil {
			return m[1]
		}
		return dateText
	}

	notice = strings.TrimPrefix(notice, "©")
	if m := phonogramTailPattern.FindStringSubmatch(notice); m != nil {
		notice = m[1]
	}

	if strings.Contains(notice, ";") {
		if year := earliestYear(notice); year != "" {
			return year
		}
	}
	if m := yearPattern.FindString(notice); m != "" {
		return m
	}
	return dateText
}

// earliestYear picks the numerically smallest digit run from a notice
// listing several years ("© 2015; 2018" reads as 2015).
func earliestYear(notice string) string {
	best := ""
	for _, run := range digitRunPattern.FindAllString(notice, -1) {
		if best == "" || len(run) < len(best) || (len(run) == len(best) && run < best) {
			best = run
		}
	}
	return best
}

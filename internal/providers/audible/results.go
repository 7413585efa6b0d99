package audible

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"audiostream/metadataservice/internal/domain"
)

var (
	numericDatePattern = regexp.MustCompile(`\d{2}-\d{2}-\d{2}`)
	dottedDatePattern  = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
	looseDatePattern   = regexp.MustCompile(`\d+-\d+-\d+`)
)

// ParseResultsPage extracts raw candidates from one search-results page.
// The site renders two row shapes depending on query type — the product
// list and the older search card — and a page can carry both; both are
// parsed, in document order, card rows after product rows.
//
// Row extraction is a set of independent probes: a field whose node is
// missing comes back absent, never as an error.
func ParseResultsPage(doc *goquery.Document) []domain.Candidate {
	candidates := parseProductListRows(doc)
	return append(candidates, parseSearchCardRows(doc)...)
}

func parseProductListRows(doc *goquery.Document) []domain.Candidate {
	var out []domain.Candidate
	doc.Find("li.productListItem").Each(func(_ int, row *goquery.Selection) {
		candidate := domain.Candidate{
			Title:        probeText(row, "a.bc-link"),
			Author:       probeText(row, "li.authorLabel span a"),
			Narrator:     probeText(row, "li.narratorLabel span a"),
			URL:          probeAttr(row, "h3 a", "href"),
			ThumbnailURL: probeAttr(row, "div.responsive-product-square img", "src"),
			Language:     languageFromLabel(probeText(row, "li.languageLabel span")),
			ReleaseDate:  parseListingDate(probeText(row, "li.releaseDateLabel span")),
		}
		out = append(out, candidate)
	})
	return out
}

// parseSearchCardRows handles the legacy card layout: a div wrapping an
// anchor-framed cover image, with the title in the second anchor and the
// release date loose in the row text.
func parseSearchCardRows(doc *goquery.Document) []domain.Candidate {
	var out []domain.Candidate
	doc.Find("a > img.yborder").Each(func(_ int, img *goquery.Selection) {
		row := img.Parent().Parent()
		anchors := row.ChildrenFiltered("a")
		if anchors.Length() < 2 {
			return
		}
		titleAnchor := anchors.Eq(1)
		candidate := domain.Candidate{
			Title:        strings.TrimSpace(titleAnchor.Text()),
			ThumbnailURL: attrOr(img, "src"),
			ReleaseDate:  parseLooseDate(ownText(row)),
		}
		candidate.URL = attrOr(titleAnchor, "href")
		out = append(out, candidate)
	})
	return out
}

// probeText returns the trimmed text of the first node matching the
// selector, or "" when nothing matches.
func probeText(root *goquery.Selection, selector string) string {
	return strings.TrimSpace(root.Find(selector).First().Text())
}

// probeAttr returns an attribute of the first node matching the selector,
// or "" when nothing matches.
func probeAttr(root *goquery.Selection, selector, attr string) string {
	return attrOr(root.Find(selector).First(), attr)
}

func attrOr(sel *goquery.Selection, attr string) string {
	value, _ := sel.Attr(attr)
	return strings.TrimSpace(value)
}

// ownText concatenates the direct text nodes of a selection, skipping
// element children.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, node := range sel.Contents().Nodes {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
	}
	return b.String()
}

// languageFromLabel turns a "Language: English" row into "English". The
// label word varies by locale but the value is always the second field.
func languageFromLabel(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// parseListingDate handles the current layout's two date shapes:
// "09-23-21" (month-day-year) and "23.09.2021" (day-month-year).
// Anything else is treated as no date.
func parseListingDate(text string) *time.Time {
	if m := numericDatePattern.FindString(text); m != "" {
		if ts, err := time.Parse("01-02-06", m); err == nil {
			return &ts
		}
	}
	if m := dottedDatePattern.FindString(text); m != "" {
		if ts, err := time.Parse("02.01.2006", m); err == nil {
			return &ts
		}
	}
	return nil
}

// parseLooseDate handles the older layout: strip everything that is not a
// digit or hyphen, then read whatever date-like run remains.
func parseLooseDate(text string) *time.Time {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, text)
	m := looseDatePattern.FindString(cleaned)
	if m == "" {
		return nil
	}
	for _, layout := range []string{"1-2-06", "2006-1-2", "1-2-2006"} {
		if ts, err := time.Parse(layout, m); err == nil {
			return &ts
		}
	}
	return nil
}

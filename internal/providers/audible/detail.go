package audible

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/sites"
)

var (
	yearPattern         = regexp.MustCompile(`\d{4}`)
	bookFallbackPattern = regexp.MustCompile(`^(.*)(, Book \d+)`)
)

// ParseDetailPage accumulates a BookDetail from one detail page. Like the
// results parser it is probe-based: every field is optional and a missing
// node just leaves the field empty.
//
// When the markup carries no release date, the page's structured-data
// blocks are harvested as a fallback for the date and for any other field
// still empty. The copyright override only ever applies on that path.
func ParseDetailPage(doc *goquery.Document, site sites.Context, preferCopyrightYear bool) domain.BookDetail {
	root := doc.Selection
	detail := domain.BookDetail{
		Title:        probeText(root, "h1.adbl-prod-h1-title"),
		Author:       probeText(root, "li a.author-profile-link"),
		Studio:       probeText(root, `li a[id*="PublisherSearchLink"]`),
		Series:       probeText(root, "div.adbl-series-link a"),
		ThumbnailURL: probeAttr(root, "div.adbl-prod-image-sqr img", "src"),
	}
	if detail.Title == "" {
		detail.Title = probeText(root, "h1")
	}
	if detail.ThumbnailURL == "" {
		detail.ThumbnailURL = probeAttr(root, "div.hero-content img", "src")
	}
	detail.Narrator = labeledListItemValue(root, site.NarratedByLabel, site.NarratedByLabelAlt)
	detail.GenreParent, detail.GenreChild = parseBreadcrumb(root)

	synopsisHTML := probeHTML(root, "div.disc-summary")
	if synopsisHTML == "" {
		synopsisHTML = probeHTML(root, "div.productPublisherSummary")
	}

	dateText := labeledListItemValue(root, site.ReleaseDateLabel, site.ReleaseDateLabelAlt)
	detail.ReleaseDate = parseListingDate(dateText)
	if detail.ReleaseDate == nil {
		detail.ReleaseDate = parseLooseDate(dateText)
	}

	if detail.ReleaseDate == nil {
		harvest := parseStructuredData(doc)
		fallbackDate := harvest.DateText
		if preferCopyrightYear {
			fallbackDate = applyCopyrightOverride(root, fallbackDate)
		}
		detail.ReleaseDate = parseFallbackDate(fallbackDate)
		mergeHarvest(&detail, harvest)
		if synopsisHTML == "" {
			synopsisHTML = harvest.Description
		}
	}

	parseSeriesRow(root, &detail)
	detail.Synopsis = CleanSynopsis(synopsisHTML)
	return detail
}

// labeledListItemValue finds the list item whose text contains the given
// localized label (or its alternate casing) and returns its second span,
// which is where the catalog puts the value.
func labeledListItemValue(root *goquery.Selection, label, labelAlt string) string {
	value := ""
	root.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := li.Text()
		if !strings.Contains(text, label) && !strings.Contains(text, labelAlt) {
			return true
		}
		spans := li.Find("span")
		if spans.Length() < 2 {
			return true
		}
		value = strings.TrimSpace(spans.Eq(1).Text())
		return false
	})
	return value
}

// parseBreadcrumb reads the genre pair from the detail breadcrumb: the
// second crumb is the parent genre, the third the child.
func parseBreadcrumb(root *goquery.Selection) (parent, child string) {
	crumbs := root.Find("div.adbl-pd-breadcrumb").First().ChildrenFiltered("div")
	parent = strings.TrimSpace(crumbs.Eq(1).Text())
	child = strings.TrimSpace(crumbs.Eq(2).Text())
	return parent, child
}

// parseSeriesRow fills the series fields from the "Series:" list item. The
// row interleaves anchors (series names) with text nodes (volume
// designators): the first pair describes the main series and the second,
// when present, the sub-series. A volume that collapses to a bare comma is
// treated as absent.
//
// Pages without the row sometimes still name the series in the subtitle as
// "<series>, Book N"; that shape is used as a last resort.
func parseSeriesRow(root *goquery.Selection, detail *domain.BookDetail) {
	row := root.Find("li.seriesLabel").First()
	if row.Length() > 0 {
		anchors := row.Find("a")
		if anchors.Length() > 0 {
			detail.Series = strings.TrimSpace(anchors.Eq(0).Text())
		}
		if anchors.Length() > 1 {
			detail.Series2 = strings.TrimSpace(anchors.Eq(1).Text())
		}
		texts := textNodes(row)
		if len(texts) > 1 {
			detail.Volume = normalizeVolume(texts[1])
		}
		if len(texts) > 2 {
			detail.Volume2 = normalizeVolume(texts[2])
		}
	}

	if detail.SeriesDef() != "" {
		return
	}
	subtitle := strings.TrimSpace(root.Find("li.authorLabel").First().Prev().Text())
	if m := bookFallbackPattern.FindStringSubmatch(subtitle); m != nil {
		detail.Series = strings.TrimSpace(m[1])
		detail.Volume = m[2]
	}
}

func textNodes(sel *goquery.Selection) []string {
	var out []string
	for _, node := range sel.Contents().Nodes {
		if node.Type == html.TextNode {
			out = append(out, strings.TrimSpace(node.Data))
		}
	}
	return out
}

func normalizeVolume(text string) string {
	if text == "," {
		return ""
	}
	return text
}

func probeHTML(root *goquery.Selection, selector string) string {
	node := root.Find(selector).First()
	if node.Length() == 0 {
		return ""
	}
	markup, err := node.Html()
	if err != nil {
		return ""
	}
	return markup
}

// parseFallbackDate reads the date shapes seen in structured data and in
// the copyright override output: an ISO date, a dotted or dashed numeric
// date, or a bare year (interpreted as January 1st).
func parseFallbackDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "January 2, 2006", "02.01.2006"} {
		if ts, err := time.Parse(layout, text); err == nil {
			return &ts
		}
	}
	if ts := parseLooseDate(text); ts != nil {
		return ts
	}
	if m := yearPattern.FindString(text); m != "" {
		year, _ := strconv.Atoi(m)
		ts := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &ts
	}
	return nil
}

// mergeHarvest copies structured-data fields into the detail record, only
// where the markup probes came back empty.
func mergeHarvest(detail *domain.BookDetail, harvest structuredHarvest) {
	if detail.Title == "" {
		detail.Title = harvest.Title
	}
	if detail.Author == "" {
		detail.Author = strings.Join(harvest.Authors, ", ")
	}
	if detail.Narrator == "" {
		detail.Narrator = strings.Join(harvest.Narrators, ", ")
	}
	if detail.Studio == "" {
		detail.Studio = harvest.Publisher
	}
	if detail.ThumbnailURL == "" {
		detail.ThumbnailURL = harvest.Thumbnail
	}
	if detail.GenreParent == "" {
		detail.GenreParent = harvest.GenreParent
	}
	if detail.GenreChild == "" {
		detail.GenreChild = harvest.GenreChild
	}
	if detail.Rating == 0 {
		detail.Rating = harvest.Rating
	}
}

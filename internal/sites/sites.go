package sites

import (
	"fmt"
	"net/url"
	"strings"

	"audiostream/metadataservice/internal/domain"
)

// Context is the per-locale site descriptor threaded through one search or
// resolve call. It is built from the static table below and never mutated.
type Context struct {
	Hostname            string
	Language            domain.Language
	TitleSearchURL      string // two %s verbs: title, author
	KeywordSearchURL    string // one %s verb: keywords
	DetailURL           string // one %s verb: item id
	ReleaseDateLabel    string
	ReleaseDateLabelAlt string
	NarratedByLabel     string
	NarratedByLabelAlt  string
}

type siteEntry struct {
	hostname            string
	releaseDateLabel    string
	releaseDateLabelAlt string
	narratedByLabel     string
	narratedByLabelAlt  string
}

// The catalog runs one storefront per supported language. Label strings are
// the exact localized texts printed next to the release date and narrator on
// detail pages; parsing matches list items by containment against them.
var siteTable = map[domain.Language]siteEntry{
	domain.LanguageEnglish: {
		hostname:            "www.audible.com",
		releaseDateLabel:    "Release date",
		releaseDateLabelAlt: "Release Date",
		narratedByLabel:     "Narrated By",
		narratedByLabelAlt:  "Narrated by",
	},
	domain.LanguageGerman: {
		hostname:            "www.audible.de",
		releaseDateLabel:    "Erscheinungsdatum",
		narratedByLabel:     "Gesprochen von",
		narratedByLabelAlt:  "Sprecher",
	},
	domain.LanguageFrench: {
		hostname:            "www.audible.fr",
		releaseDateLabel:    "Date de publication",
		narratedByLabel:     "Narrateur",
		narratedByLabelAlt:  "Lu par",
	},
	domain.LanguageItalian: {
		hostname:            "www.audible.it",
		releaseDateLabel:    "Data di pubblicazione",
		narratedByLabel:     "Narratore",
		narratedByLabelAlt:  "Letto da",
	},
}

func contextFor(lang domain.Language, entry siteEntry) Context {
	base := "https://" + entry.hostname
	ctx := Context{
		Hostname:            entry.hostname,
		Language:            lang,
		TitleSearchURL:      base + "/search?title=%s&author_author=%s&x=41&ipRedirectOverride=true",
		KeywordSearchURL:    base + "/search?keywords=%s&x=41&ipRedirectOverride=true",
		DetailURL:           base + "/pd/%s?ipRedirectOverride=true",
		ReleaseDateLabel:    entry.releaseDateLabel,
		ReleaseDateLabelAlt: entry.releaseDateLabelAlt,
		NarratedByLabel:     entry.narratedByLabel,
		NarratedByLabelAlt:  entry.narratedByLabelAlt,
	}
	if ctx.ReleaseDateLabelAlt == "" {
		ctx.ReleaseDateLabelAlt = ctx.ReleaseDateLabel
	}
	if ctx.NarratedByLabelAlt == "" {
		ctx.NarratedByLabelAlt = ctx.NarratedByLabel
	}
	return ctx
}

// ForLanguage returns the site context for a supported language.
func ForLanguage(lang domain.Language) Context {
	entry, ok := siteTable[lang]
	if !ok {
		lang = domain.LanguageEnglish
		entry = siteTable[lang]
	}
	return contextFor(lang, entry)
}

// ForHostname finds the site whose hostname matches the override, ignoring
// a leading "www.". Used when site selection mode is manual.
func ForHostname(hostname string) (Context, bool) {
	needle := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hostname)), "www.")
	if needle == "" {
		return Context{}, false
	}
	for lang, entry := range siteTable {
		if strings.TrimPrefix(entry.hostname, "www.") == needle {
			return contextFor(lang, entry), true
		}
	}
	return Context{}, false
}

// SearchURL builds the search request for a normalized title and optional
// author. With an author the combined title+author template is used,
// otherwise the keyword-only one. Both fields use form encoding, so a space
// becomes '+'.
func (c Context) SearchURL(title, author string) string {
	if strings.TrimSpace(author) != "" {
		return fmt.Sprintf(c.TitleSearchURL, url.QueryEscape(title), url.QueryEscape(author))
	}
	return fmt.Sprintf(c.KeywordSearchURL, url.QueryEscape(title))
}

// DetailPageURL builds the detail-page URL for one catalog item id.
func (c Context) DetailPageURL(id string) string {
	return fmt.Sprintf(c.DetailURL, id)
}

// Select resolves the site context for one call from the preference pair
// (selection mode, override hostname) and the library language. An invalid
// manual override falls back to language-based selection.
func Select(mode domain.SiteSelectionMode, override string, lang domain.Language) Context {
	if mode == domain.SiteModeManual {
		if ctx, ok := ForHostname(override); ok {
			return ctx
		}
	}
	return ForLanguage(lang)
}

package domain

import "time"

// Language is one of the four catalog locales the service understands.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageGerman  Language = "de"
	LanguageFrench  Language = "fr"
	LanguageItalian Language = "it"
)

// NormalizeLanguage maps a raw language code to a supported locale,
// defaulting to English for anything unknown.
func NormalizeLanguage(raw string) Language {
	switch Language(raw) {
	case LanguageGerman:
		return LanguageGerman
	case LanguageFrench:
		return LanguageFrench
	case LanguageItalian:
		return LanguageItalian
	default:
		return LanguageEnglish
	}
}

// Name returns the language name as the catalog prints it on listing rows.
// Candidate rows are compared textually against this value during scoring.
func (l Language) Name() string {
	switch l {
	case LanguageGerman:
		return "Deutsch"
	case LanguageFrench:
		return "Français"
	case LanguageItalian:
		return "Italiano"
	default:
		return "English"
	}
}

// BySeparator returns the localized word placed between title and author in
// a result's display name ("Dune by Frank Herbert", "Dune von Frank Herbert").
func (l Language) BySeparator() string {
	switch l {
	case LanguageGerman:
		return "von"
	case LanguageFrench:
		return "de"
	case LanguageItalian:
		return "di"
	default:
		return "by"
	}
}

type CoverPolicy string

const (
	CoverPolicyUseCatalog    CoverPolicy = "use-audible-cover"
	CoverPolicyKeepExisting  CoverPolicy = "dont-overwrite-existing"
)

func NormalizeCoverPolicy(raw string) CoverPolicy {
	if CoverPolicy(raw) == CoverPolicyKeepExisting {
		return CoverPolicyKeepExisting
	}
	return CoverPolicyUseCatalog
}

type SiteSelectionMode string

const (
	SiteModeByLanguage SiteSelectionMode = "by-library-language"
	SiteModeManual     SiteSelectionMode = "manual"
)

// Preferences carries the host-supplied options recognized by the agent.
type Preferences struct {
	SiteMode            SiteSelectionMode `json:"siteMode,omitempty"`
	SiteOverride        string            `json:"siteOverride,omitempty"`
	PreferCopyrightYear bool              `json:"preferCopyrightYear,omitempty"`
	CoverPolicy         CoverPolicy       `json:"coverPolicy,omitempty"`
	DebugLogging        bool              `json:"debugLogging,omitempty"`
}

// BookQuery describes the locally-known audiobook being enriched.
// Author is optional; Language defaults to English.
type BookQuery struct {
	Title    string   `json:"title"`
	Author   string   `json:"author,omitempty"`
	Language Language `json:"language,omitempty"`
}

// Candidate is one raw search-result row before scoring. Every field except
// URL and Title may be absent depending on which markup shape produced it.
type Candidate struct {
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	Narrator     string     `json:"narrator,omitempty"`
	Language     string     `json:"language,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	ReleaseDate  *time.Time `json:"releaseDate,omitempty"`
}

// Match is a scored candidate with its catalog item identifier resolved.
// Score starts at 100 and has deductions subtracted; it is deliberately not
// floored, so a wildly-off candidate can carry a negative score.
type Match struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Author       string `json:"author,omitempty"`
	DisplayName  string `json:"displayName"`
	Score        int    `json:"score"`
	Year         int    `json:"year,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// BookDetail is the record accumulated from one detail page. Author and
// Narrator are comma-joined lists as the catalog renders them; Series2 and
// Volume2 describe the sub-series when the item belongs to one.
type BookDetail struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Author       string     `json:"author,omitempty"`
	Narrator     string     `json:"narrator,omitempty"`
	ReleaseDate  *time.Time `json:"releaseDate,omitempty"`
	Rating       float64    `json:"rating,omitempty"`
	GenreParent  string     `json:"genreParent,omitempty"`
	GenreChild   string     `json:"genreChild,omitempty"`
	Studio       string     `json:"studio,omitempty"`
	Synopsis     string     `json:"synopsis,omitempty"`
	Series       string     `json:"series,omitempty"`
	Series2      string     `json:"series2,omitempty"`
	Volume       string     `json:"volume,omitempty"`
	Volume2      string     `json:"volume2,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	PageURL      string     `json:"pageUrl,omitempty"`
}

// SeriesDef is the effective series name, preferring the sub-series.
// It is always derived, never stored.
func (d BookDetail) SeriesDef() string {
	if d.Series2 != "" {
		return d.Series2
	}
	return d.Series
}

// VolumeDef is the effective volume designator, preferring the sub-series'.
func (d BookDetail) VolumeDef() string {
	if d.Volume2 != "" {
		return d.Volume2
	}
	return d.Volume
}

// MetadataRecord is the completed record in the shape the host's metadata
// sink consumes. Moods carry authors, Styles carry narrators; that mapping
// is inherited from the sink's fixed field set.
type MetadataRecord struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	TitleSort   string      `json:"titleSort"`
	Studio      string      `json:"studio,omitempty"`
	Summary     string      `json:"summary,omitempty"`
	ReleasedAt  *time.Time  `json:"releasedAt,omitempty"`
	Genres      []string    `json:"genres,omitempty"`
	Moods       []string    `json:"moods,omitempty"`
	Styles      []string    `json:"styles,omitempty"`
	Collections []string    `json:"collections,omitempty"`
	CoverURL    string      `json:"coverUrl,omitempty"`
	CoverPolicy CoverPolicy `json:"coverPolicy,omitempty"`
	Rating      float64     `json:"rating,omitempty"`
}

type SearchResponse struct {
	Query      string   `json:"query"`
	Language   Language `json:"language"`
	Items      []Match  `json:"items"`
	TotalItems int      `json:"totalItems"`
	Truncated  bool     `json:"truncated"`
	ElapsedMS  int64    `json:"elapsedMs"`
}

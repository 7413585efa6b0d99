// Package metadata maps a finished book detail into the record shape the
// host's metadata sink consumes. The sink has no native fields for authors,
// narrators or series, so they ride along in moods, styles and collections.
package metadata

import (
	"strings"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/series"
)

// contributorMarkers flag entries in the author/narrator lists that name a
// role rather than a person creditable for the work. Matching is lowercase
// containment so "Jane Doe - translator" and "Translated by Jane Doe" are
// both caught.
var contributorMarkers = []string{
	"contributor",
	"translator",
	"translated",
	"foreword",
	"full cast",
}

// Compile finalizes a detail record: cleans the series/title pair, derives
// the sort key and distributes the list fields. The cover reference is
// carried alongside the policy; applying the policy is the sink's call,
// since only it knows whether art already exists.
func Compile(detail domain.BookDetail, prefs domain.Preferences) domain.MetadataRecord {
	title, seriesDef := series.Clean(detail.Title, detail.SeriesDef(), detail.VolumeDef())

	record := domain.MetadataRecord{
		ID:          detail.ID,
		Title:       title,
		TitleSort:   series.SortKey(title, seriesDef, detail.VolumeDef()),
		Studio:      detail.Studio,
		Summary:     detail.Synopsis,
		ReleasedAt:  detail.ReleaseDate,
		Genres:      genreList(detail),
		Moods:       creditedNames(detail.Author),
		Styles:      creditedNames(detail.Narrator),
		Collections: collectionList(detail),
		CoverURL:    detail.ThumbnailURL,
		CoverPolicy: domain.NormalizeCoverPolicy(string(prefs.CoverPolicy)),
	}
	if detail.Rating > 0 {
		// The catalog rates out of five, the sink out of ten.
		record.Rating = detail.Rating * 2
	}
	return record
}

func genreList(detail domain.BookDetail) []string {
	var genres []string
	if detail.GenreParent != "" {
		genres = append(genres, detail.GenreParent)
	}
	if detail.GenreChild != "" {
		genres = append(genres, detail.GenreChild)
	}
	return genres
}

// creditedNames splits a comma-joined name list and drops entries carrying
// a contributor marker.
func creditedNames(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	var names []string
	for _, name := range strings.Split(joined, ",") {
		name = strings.TrimSpace(name)
		if name == "" || hasContributorMarker(name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

func hasContributorMarker(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range contributorMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func collectionList(detail domain.BookDetail) []string {
	var collections []string
	if detail.Series != "" {
		collections = append(collections, detail.Series)
	}
	if detail.Series2 != "" && detail.Series2 != detail.Series {
		collections = append(collections, detail.Series2)
	}
	return collections
}

package match

import (
	"audiostream/metadataservice/internal/domain"
)

const (
	// InitialScore is the starting value before deductions.
	InitialScore = 100
	// DefaultGoodScore short-circuits non-manual consumption (see Cut).
	DefaultGoodScore = 98
	// DefaultIgnoreScore drops candidates scoring below it.
	DefaultIgnoreScore = 45

	languagePenalty = 2
)

// Deduction computes the total penalty for one candidate. The content part
// is the title edit distance; when the query carries an author, the author
// edit distance replaces it rather than adding to it.
func Deduction(query domain.BookQuery, candidate domain.Candidate) int {
	content := levenshtein(query.Title, candidate.Title)
	if query.Author != "" {
		content = levenshtein(query.Author, candidate.Author)
	}
	return content + languageDeduction(query.Language, candidate.Language)
}

// languageDeduction knocks off two points when the row's printed language
// does not match the library language's localized name. Markup shapes that
// omit the language row are not penalized.
func languageDeduction(want domain.Language, got string) int {
	if got == "" {
		return 0
	}
	if got != want.Name() {
		return languagePenalty
	}
	return 0
}

// Score is InitialScore minus the deduction. Deliberately not floored at
// zero; downstream thresholds already cope with negative values.
func Score(query domain.BookQuery, candidate domain.Candidate) int {
	return InitialScore - Deduction(query, candidate)
}

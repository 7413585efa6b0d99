package match

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/metrics"
)

// itemIDPattern matches a 10-character catalog item id at the start of a
// URL path segment.
var itemIDPattern = regexp.MustCompile(`^[0-9A-Z]{10}`)

// ExtractItemID pulls the catalog item id out of a result URL. Each
// /-delimited segment is probed; when the matched segment carries a query
// string the id is re-extracted from the part before the '?'. An empty
// return means the URL names no item.
func ExtractItemID(rawURL string) string {
	for _, segment := range strings.Split(rawURL, "/") {
		id := itemIDPattern.FindString(segment)
		if id == "" {
			continue
		}
		if q := strings.IndexByte(segment, '?'); q >= 0 {
			id = itemIDPattern.FindString(segment[:q])
			if id == "" {
				continue
			}
		}
		return id
	}
	return ""
}

// Options tunes one ranking pass. Zero values select the defaults; Now
// defaults to the wall clock and exists so the pre-order cutoff is
// deterministic in tests.
type Options struct {
	IgnoreScore int
	Now         time.Time
	Logger      *slog.Logger
}

// Rank scores parsed candidates and returns them ordered by descending
// score. Candidates without a recognizable item id and pre-order listings
// (release date after Now) are skipped, and anything scoring below the
// ignore threshold is dropped. Ties keep parse order.
func Rank(query domain.BookQuery, candidates []domain.Candidate, opts Options) []domain.Match {
	ignore := opts.IgnoreScore
	if ignore == 0 {
		ignore = DefaultIgnoreScore
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	matches := make([]domain.Match, 0, len(candidates))
	for _, candidate := range candidates {
		id := ExtractItemID(candidate.URL)
		if id == "" {
			logger.Debug("candidate skipped: no item id in url",
				slog.String("url", candidate.URL),
				slog.String("title", candidate.Title),
			)
			continue
		}

		year := 0
		if candidate.ReleaseDate != nil {
			year = candidate.ReleaseDate.Year()
			if candidate.ReleaseDate.After(now) {
				logger.Debug("candidate skipped: pre-order listing",
					slog.String("id", id),
					slog.Time("releaseDate", *candidate.ReleaseDate),
				)
				continue
			}
		}

		score := Score(query, candidate)
		metrics.CandidateScores.Observe(float64(score))
		logger.Debug("candidate scored",
			slog.String("id", id),
			slog.String("title", candidate.Title),
			slog.String("author", candidate.Author),
			slog.Int("score", score),
		)
		if score < ignore {
			logger.Debug("candidate skipped: below ignore threshold",
				slog.String("id", id),
				slog.Int("score", score),
				slog.Int("ignoreScore", ignore),
			)
			continue
		}

		matches = append(matches, domain.Match{
			ID:           id,
			Title:        candidate.Title,
			Author:       candidate.Author,
			DisplayName:  DisplayName(query.Language, candidate.Title, candidate.Author),
			Score:        score,
			Year:         year,
			ThumbnailURL: candidate.ThumbnailURL,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Cut returns how many ranked matches a non-manual consumer should take:
// everything up to and including the first match at or above goodScore,
// when more than one match exists. This is a consumption convention, not a
// filter; callers wanting the full list just ignore it.
func Cut(matches []domain.Match, goodScore int) int {
	if goodScore == 0 {
		goodScore = DefaultGoodScore
	}
	if len(matches) <= 1 {
		return len(matches)
	}
	for i, m := range matches {
		if m.Score >= goodScore {
			return i + 1
		}
	}
	return len(matches)
}

// DisplayName renders the result line shown to the host user, with the
// localized separator between title and author. Long titles truncate to
// keep the line inside the host's ~60 displayable characters.
func DisplayName(lang domain.Language, title, author string) string {
	display := title
	if len(display) > 38 {
		display = display[:32] + ".."
	}
	return fmt.Sprintf("%q %s %s", display, lang.BySeparator(), author)
}

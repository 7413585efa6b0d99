// Package agent drives the enrichment flow: normalize the local item,
// pick the storefront, search it, rank candidates, and on selection turn
// a detail page into a finished metadata record. Responses are cached
// with a stale-refresh window and a background warmer keeps popular
// queries fresh.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/fetch"
	"audiostream/metadataservice/internal/match"
	"audiostream/metadataservice/internal/metadata"
	"audiostream/metadataservice/internal/sites"
)

var (
	ErrEmptyTitle    = errors.New("title is required")
	ErrInvalidItemID = errors.New("invalid catalog item id")
	ErrUnknownItem   = errors.New("unknown catalog item")
)

// Catalog is the storefront access the service needs. The audible provider
// is the only production implementation; tests substitute fakes.
type Catalog interface {
	Name() string
	Search(ctx context.Context, site sites.Context, title, author string) ([]domain.Candidate, error)
	Detail(ctx context.Context, site sites.Context, id string, preferCopyrightYear bool) (domain.BookDetail, error)
}

type Service struct {
	catalog     Catalog
	logger      *slog.Logger
	timeout     time.Duration
	ignoreScore int
	goodScore   int

	cacheDisabled bool
	cacheMu       sync.Mutex
	cache         map[string]*cachedResponse
	records       map[string]*cachedRecord
	popular       map[string]*popularQuery
	warmerCfg     warmerConfig
	warmerRun     atomic.Bool
	redisCache    *RedisCacheBackend
}

type ServiceOption func(*Service)

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.warmerCfg.cacheTTL = ttl
			s.warmerCfg.staleTTL = ttl * 3
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScoreThresholds overrides the ignore and good-match score cutoffs.
// Zero keeps the respective default.
func WithScoreThresholds(ignore, good int) ServiceOption {
	return func(s *Service) {
		if ignore != 0 {
			s.ignoreScore = ignore
		}
		if good != 0 {
			s.goodScore = good
		}
	}
}

func NewService(catalog Catalog, timeout time.Duration, opts ...ServiceOption) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	svc := &Service{
		catalog:     catalog,
		logger:      slog.Default(),
		timeout:     timeout,
		ignoreScore: match.DefaultIgnoreScore,
		goodScore:   match.DefaultGoodScore,
		cache:       make(map[string]*cachedResponse),
		records:     make(map[string]*cachedRecord),
		popular:     make(map[string]*popularQuery),
		warmerCfg:   defaultWarmerConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// StartBackground launches the cache warmer. Safe to call more than once;
// only the first call starts it.
func (s *Service) StartBackground(ctx context.Context) {
	if s.warmerRun.CompareAndSwap(false, true) {
		go s.runWarmer(ctx)
	}
}

type preparedQuery struct {
	title  string
	author string
	lang   domain.Language
	prefs  domain.Preferences
	manual bool
}

// Search runs one enrichment search. In manual mode the full ranked list
// is returned; otherwise the list stops at the first great match. A failed
// catalog fetch degrades to an empty result set rather than an error — the
// host treats "no results" and "site unreachable" the same way.
func (s *Service) Search(ctx context.Context, query domain.BookQuery, prefs domain.Preferences, manual bool) (domain.SearchResponse, error) {
	title := match.NormalizeTitle(query.Title)
	if title == "" {
		return domain.SearchResponse{}, ErrEmptyTitle
	}
	lang := domain.NormalizeLanguage(string(query.Language))
	author := strings.TrimSpace(query.Author)
	prepared := preparedQuery{title: title, author: author, lang: lang, prefs: prefs, manual: manual}

	if prefs.DebugLogging {
		s.logger.Info("search request",
			"title", title,
			"author", author,
			"language", string(lang),
			"manual", manual)
	}

	if s.cacheDisabled {
		return s.executeSearch(ctx, prepared), nil
	}

	startedAt := time.Now()
	site := sites.Select(prefs.SiteMode, prefs.SiteOverride, lang)
	cacheKey := buildSearchCacheKey(site.Hostname, title, author, manual)

	if cached, ok, needsRefresh := s.cacheLookup(cacheKey, startedAt); ok {
		s.markPopular(cacheKey, prepared, startedAt)
		if needsRefresh {
			s.refreshCacheAsync(cacheKey, prepared)
		}
		cached.ElapsedMS = time.Since(startedAt).Milliseconds()
		return cached, nil
	}

	response := s.executeSearch(ctx, prepared)
	s.cacheStore(cacheKey, response, time.Now())
	s.markPopular(cacheKey, prepared, time.Now())
	return response, nil
}

func (s *Service) executeSearch(ctx context.Context, prepared preparedQuery) domain.SearchResponse {
	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	site := sites.Select(prepared.prefs.SiteMode, prepared.prefs.SiteOverride, prepared.lang)

	candidates, err := s.catalog.Search(runCtx, site, prepared.title, prepared.author)
	if err != nil {
		s.logger.Warn("catalog search failed, degrading to no results",
			"site", site.Hostname,
			"title", prepared.title,
			"error", err)
		candidates = nil
	}

	matches := match.Rank(
		domain.BookQuery{Title: prepared.title, Author: prepared.author, Language: prepared.lang},
		candidates,
		match.Options{IgnoreScore: s.ignoreScore, Logger: s.logger},
	)

	total := len(matches)
	truncated := false
	if !prepared.manual {
		keep := match.Cut(matches, s.goodScore)
		truncated = keep < len(matches)
		matches = matches[:keep]
	}

	return domain.SearchResponse{
		Query:      prepared.title,
		Language:   prepared.lang,
		Items:      matches,
		TotalItems: total,
		Truncated:  truncated,
		ElapsedMS:  time.Since(startedAt).Milliseconds(),
	}
}

// Resolve fetches one item's detail page and compiles the final metadata
// record. A storefront 404 maps to ErrUnknownItem; other fetch failures
// propagate as-is.
func (s *Service) Resolve(ctx context.Context, id string, prefs domain.Preferences, lang domain.Language) (domain.MetadataRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" || match.ExtractItemID(id) != id {
		return domain.MetadataRecord{}, fmt.Errorf("%w: %q", ErrInvalidItemID, id)
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	site := sites.Select(prefs.SiteMode, prefs.SiteOverride, domain.NormalizeLanguage(string(lang)))

	var cacheKey string
	if !s.cacheDisabled {
		cacheKey = buildRecordCacheKey(site.Hostname, id, prefs)
		if record, ok := s.recordLookup(cacheKey, time.Now()); ok {
			return record, nil
		}
	}

	detail, err := s.catalog.Detail(runCtx, site, id, prefs.PreferCopyrightYear)
	if err != nil {
		var statusErr *fetch.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return domain.MetadataRecord{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
		}
		return domain.MetadataRecord{}, fmt.Errorf("resolve %s: %w", id, err)
	}

	record := metadata.Compile(detail, prefs)
	if !s.cacheDisabled {
		s.recordStore(cacheKey, record, time.Now())
	}
	if prefs.DebugLogging {
		s.logger.Info("resolved item",
			"id", id,
			"title", record.Title,
			"site", site.Hostname)
	}
	return record, nil
}

package agent

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/metrics"
)

const (
	// The catalog's records barely change; a week of freshness matches how
	// often release metadata is corrected upstream.
	defaultCacheTTL            = 168 * time.Hour
	defaultStaleTTL            = 3 * defaultCacheTTL
	defaultWarmInterval        = 30 * time.Minute
	defaultWarmTopQueries      = 8
	defaultCacheMaxEntries     = 256
	defaultPopularMaxEntries   = 128
	maxConcurrentWarmRefreshes = 2
)

type warmerConfig struct {
	cacheTTL          time.Duration
	staleTTL          time.Duration
	warmInterval      time.Duration
	warmTopQueries    int
	cacheMaxEntries   int
	popularMaxEntries int
}

func defaultWarmerConfig() warmerConfig {
	return warmerConfig{
		cacheTTL:          defaultCacheTTL,
		staleTTL:          defaultStaleTTL,
		warmInterval:      defaultWarmInterval,
		warmTopQueries:    defaultWarmTopQueries,
		cacheMaxEntries:   defaultCacheMaxEntries,
		popularMaxEntries: defaultPopularMaxEntries,
	}
}

type cachedResponse struct {
	response    domain.SearchResponse
	updatedAt   time.Time
	expiresAt   time.Time
	staleUntil  time.Time
	refreshing  bool
	refreshOnce sync.Once
}

type cachedRecord struct {
	record    domain.MetadataRecord
	expiresAt time.Time
}

type popularQuery struct {
	prepared preparedQuery
	hits     int
	lastSeen time.Time
	lastWarm time.Time
}

type warmSpec struct {
	key      string
	prepared preparedQuery
}

func (s *Service) runWarmer(ctx context.Context) {
	ticker := time.NewTicker(s.warmerCfg.warmInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runWarmCycle(ctx)
		}
	}
}

// runWarmCycle re-executes the most popular expired queries with bounded
// concurrency, so the warmer never floods the storefront's politeness
// throttle.
func (s *Service) runWarmCycle(ctx context.Context) {
	now := time.Now()
	specs := s.collectWarmSpecs(now)
	if len(specs) == 0 {
		return
	}

	sem := semaphore.NewWeighted(maxConcurrentWarmRefreshes)
	var wg sync.WaitGroup
	for _, spec := range specs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		default:
		}

		wg.Add(1)
		go func(spec warmSpec) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				s.cacheClearRefreshing(spec.key)
				return
			}
			defer sem.Release(1)

			refreshCtx, cancel := context.WithTimeout(ctx, s.timeout+2*time.Second)
			defer cancel()

			response := s.executeSearch(refreshCtx, spec.prepared)
			s.cacheStore(spec.key, response, time.Now())
		}(spec)
	}
	wg.Wait()
}

func (s *Service) collectWarmSpecs(now time.Time) []warmSpec {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.popular) == 0 {
		return nil
	}

	keys := make([]string, 0, len(s.popular))
	for key := range s.popular {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left := s.popular[keys[i]]
		right := s.popular[keys[j]]
		if left.hits != right.hits {
			return left.hits > right.hits
		}
		return left.lastSeen.After(right.lastSeen)
	})

	limit := s.warmerCfg.warmTopQueries
	if limit <= 0 {
		limit = defaultWarmTopQueries
	}
	if len(keys) < limit {
		limit = len(keys)
	}

	specs := make([]warmSpec, 0, limit)
	for _, key := range keys[:limit] {
		pop := s.popular[key]
		if pop == nil {
			continue
		}
		if !pop.lastWarm.IsZero() && now.Sub(pop.lastWarm) < s.warmerCfg.warmInterval/2 {
			continue
		}
		if entry, ok := s.cache[key]; ok && now.Before(entry.expiresAt) {
			continue
		}
		pop.lastWarm = now
		if entry := s.cache[key]; entry != nil {
			entry.refreshing = true
		}
		specs = append(specs, warmSpec{key: key, prepared: pop.prepared})
	}
	return specs
}

// cacheLookup checks Redis first, then memory. The third return reports
// that the entry is stale and this caller won the refresh; refreshOnce
// keeps concurrent stale hits from refreshing more than once.
func (s *Service) cacheLookup(key string, now time.Time) (domain.SearchResponse, bool, bool) {
	if s.redisCache != nil {
		resp, found, err := s.redisCache.Get(context.Background(), key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			s.cacheStoreMemoryOnly(key, resp, now)
			return resp, true, false
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return domain.SearchResponse{}, false, false
	}

	if now.Before(entry.expiresAt) {
		metrics.CacheHitsTotal.Inc()
		return cloneResponse(entry.response), true, false
	}

	if now.Before(entry.staleUntil) {
		metrics.CacheHitsTotal.Inc()
		needsRefresh := false
		entry.refreshOnce.Do(func() {
			needsRefresh = true
			entry.refreshing = true
		})
		return cloneResponse(entry.response), true, needsRefresh
	}

	metrics.CacheMissesTotal.Inc()
	delete(s.cache, key)
	delete(s.popular, key)
	return domain.SearchResponse{}, false, false
}

func (s *Service) cacheStore(key string, response domain.SearchResponse, now time.Time) {
	cacheTTL := s.warmerCfg.cacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	if s.redisCache != nil {
		_ = s.redisCache.Set(context.Background(), key, response, cacheTTL)
	}
	s.cacheStoreMemoryOnly(key, response, now)
}

func (s *Service) cacheStoreMemoryOnly(key string, response domain.SearchResponse, now time.Time) {
	cacheTTL := s.warmerCfg.cacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	staleTTL := s.warmerCfg.staleTTL
	if staleTTL <= cacheTTL {
		staleTTL = cacheTTL * 3
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = &cachedResponse{
		response:   cloneResponse(response),
		updatedAt:  now,
		expiresAt:  now.Add(cacheTTL),
		staleUntil: now.Add(staleTTL),
	}
	s.trimCacheLocked(now)
}

func (s *Service) cacheClearRefreshing(key string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if entry := s.cache[key]; entry != nil {
		entry.refreshing = false
	}
}

func (s *Service) refreshCacheAsync(cacheKey string, prepared preparedQuery) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout+2*time.Second)
		defer cancel()
		response := s.executeSearch(ctx, prepared)
		s.cacheStore(cacheKey, response, time.Now())
	}()
}

func (s *Service) markPopular(key string, prepared preparedQuery, now time.Time) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	pop, ok := s.popular[key]
	if !ok {
		s.popular[key] = &popularQuery{prepared: prepared, hits: 1, lastSeen: now}
	} else {
		pop.hits++
		pop.lastSeen = now
		pop.prepared = prepared
	}

	limit := s.warmerCfg.popularMaxEntries
	if limit <= 0 {
		limit = defaultPopularMaxEntries
	}
	if len(s.popular) <= limit {
		return
	}

	type pair struct {
		key   string
		value *popularQuery
	}
	items := make([]pair, 0, len(s.popular))
	for popKey, value := range s.popular {
		items = append(items, pair{key: popKey, value: value})
	}
	sort.Slice(items, func(i, j int) bool {
		left := items[i].value
		right := items[j].value
		if left.hits != right.hits {
			return left.hits < right.hits
		}
		return left.lastSeen.Before(right.lastSeen)
	})
	for i := 0; i < len(items)-limit; i++ {
		delete(s.popular, items[i].key)
	}
}

func (s *Service) trimCacheLocked(now time.Time) {
	maxEntries := s.warmerCfg.cacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}

	for key, entry := range s.cache {
		if now.After(entry.staleUntil) {
			delete(s.cache, key)
		}
	}
	if len(s.cache) <= maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedResponse
	}
	items := make([]pair, 0, len(s.cache))
	for key, entry := range s.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-maxEntries; i++ {
		delete(s.cache, items[i].key)
	}
}

func (s *Service) recordLookup(key string, now time.Time) (domain.MetadataRecord, bool) {
	if s.redisCache != nil {
		record, found, err := s.redisCache.GetRecord(context.Background(), key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			return record, true
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.records[key]
	if !ok || now.After(entry.expiresAt) {
		if ok {
			delete(s.records, key)
		}
		metrics.CacheMissesTotal.Inc()
		return domain.MetadataRecord{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return cloneRecord(entry.record), true
}

func (s *Service) recordStore(key string, record domain.MetadataRecord, now time.Time) {
	cacheTTL := s.warmerCfg.cacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	if s.redisCache != nil {
		_ = s.redisCache.SetRecord(context.Background(), key, record, cacheTTL)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.records[key] = &cachedRecord{record: cloneRecord(record), expiresAt: now.Add(cacheTTL)}
	s.trimRecordsLocked(now)
}

func (s *Service) trimRecordsLocked(now time.Time) {
	maxEntries := s.warmerCfg.cacheMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}

	for key, entry := range s.records {
		if now.After(entry.expiresAt) {
			delete(s.records, key)
		}
	}
	if len(s.records) <= maxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedRecord
	}
	items := make([]pair, 0, len(s.records))
	for key, entry := range s.records {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.expiresAt.Before(items[j].entry.expiresAt)
	})
	for i := 0; i < len(items)-maxEntries; i++ {
		delete(s.records, items[i].key)
	}
}

func cloneRecord(record domain.MetadataRecord) domain.MetadataRecord {
	cloned := record
	cloned.Genres = append([]string(nil), record.Genres...)
	cloned.Moods = append([]string(nil), record.Moods...)
	cloned.Styles = append([]string(nil), record.Styles...)
	cloned.Collections = append([]string(nil), record.Collections...)
	return cloned
}

func cloneResponse(response domain.SearchResponse) domain.SearchResponse {
	cloned := response
	if response.Items != nil {
		cloned.Items = append([]domain.Match(nil), response.Items...)
	}
	return cloned
}

func buildSearchCacheKey(hostname, title, author string, manual bool) string {
	mode := "auto"
	if manual {
		mode = "manual"
	}
	return strings.Join([]string{
		"s=" + strings.ToLower(strings.TrimSpace(hostname)),
		"t=" + strings.ToLower(strings.TrimSpace(title)),
		"a=" + strings.ToLower(strings.TrimSpace(author)),
		"m=" + mode,
	}, "|")
}

// buildRecordCacheKey includes the preferences that change the compiled
// record, so two hosts with different cover policies never share an entry.
func buildRecordCacheKey(hostname, id string, prefs domain.Preferences) string {
	year := "0"
	if prefs.PreferCopyrightYear {
		year = "1"
	}
	return strings.Join([]string{
		"s=" + strings.ToLower(strings.TrimSpace(hostname)),
		"id=" + id,
		"y=" + year,
		"c=" + string(domain.NormalizeCoverPolicy(string(prefs.CoverPolicy))),
	}, "|")
}

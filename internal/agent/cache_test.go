package agent

import (
	"testing"
	"time"

	"audiostream/metadataservice/internal/domain"
)

func TestBuildSearchCacheKey(t *testing.T) {
	key := buildSearchCacheKey("www.audible.com", "Dune", "Frank Herbert", false)
	if key != "s=www.audible.com|t=dune|a=frank herbert|m=auto" {
		t.Fatalf("unexpected key: %q", key)
	}
	manual := buildSearchCacheKey("www.audible.com", "Dune", "Frank Herbert", true)
	if manual == key {
		t.Fatal("manual flag must produce a distinct key")
	}
}

func TestBuildRecordCacheKey(t *testing.T) {
	plain := buildRecordCacheKey("www.audible.com", "B0DUNE0000", domain.Preferences{})
	if plain != "s=www.audible.com|id=B0DUNE0000|y=0|c=use-audible-cover" {
		t.Fatalf("unexpected key: %q", plain)
	}
	shaped := buildRecordCacheKey("www.audible.com", "B0DUNE0000", domain.Preferences{
		PreferCopyrightYear: true,
		CoverPolicy:         domain.CoverPolicyKeepExisting,
	})
	if shaped == plain {
		t.Fatal("record-shaping preferences must produce a distinct key")
	}
}

func TestCacheLookupFreshStaleExpired(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	svc.warmerCfg.cacheTTL = time.Minute
	svc.warmerCfg.staleTTL = 3 * time.Minute

	now := time.Now()
	response := domain.SearchResponse{Query: "dune", TotalItems: 1, Items: []domain.Match{{ID: "B0DUNE0000"}}}
	svc.cacheStoreMemoryOnly("k", response, now)

	if got, ok, refresh := svc.cacheLookup("k", now.Add(30*time.Second)); !ok || refresh || got.TotalItems != 1 {
		t.Fatalf("fresh entry: ok=%v refresh=%v %+v", ok, refresh, got)
	}

	// Inside the stale window the entry still serves, and exactly one
	// caller wins the refresh.
	if _, ok, refresh := svc.cacheLookup("k", now.Add(2*time.Minute)); !ok || !refresh {
		t.Fatalf("first stale lookup should win refresh: ok=%v refresh=%v", ok, refresh)
	}
	if _, ok, refresh := svc.cacheLookup("k", now.Add(2*time.Minute)); !ok || refresh {
		t.Fatalf("second stale lookup must not refresh again: ok=%v refresh=%v", ok, refresh)
	}

	if _, ok, _ := svc.cacheLookup("k", now.Add(10*time.Minute)); ok {
		t.Fatal("entry past the stale window should miss")
	}
}

func TestCacheLookupReturnsCopy(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	now := time.Now()
	svc.cacheStoreMemoryOnly("k", domain.SearchResponse{Items: []domain.Match{{ID: "A000000000"}}}, now)

	got, ok, _ := svc.cacheLookup("k", now)
	if !ok {
		t.Fatal("expected hit")
	}
	got.Items[0].ID = "mutated"

	again, _, _ := svc.cacheLookup("k", now)
	if again.Items[0].ID != "A000000000" {
		t.Fatalf("cache entry shared with caller: %q", again.Items[0].ID)
	}
}

func TestTrimCacheDropsOldestBeyondLimit(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	svc.warmerCfg.cacheMaxEntries = 2

	base := time.Now()
	svc.cacheStoreMemoryOnly("old", domain.SearchResponse{}, base.Add(-2*time.Hour))
	svc.cacheStoreMemoryOnly("mid", domain.SearchResponse{}, base.Add(-time.Hour))
	svc.cacheStoreMemoryOnly("new", domain.SearchResponse{}, base)

	svc.cacheMu.Lock()
	defer svc.cacheMu.Unlock()
	if _, ok := svc.cache["old"]; ok {
		t.Fatal("oldest entry should have been trimmed")
	}
	if len(svc.cache) != 2 {
		t.Fatalf("cache size: %d", len(svc.cache))
	}
}

func TestCollectWarmSpecsSkipsFreshEntries(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	now := time.Now()

	prepared := preparedQuery{title: "dune", lang: domain.LanguageEnglish}
	svc.markPopular("fresh", prepared, now)
	svc.markPopular("expired", prepared, now)

	svc.cacheStoreMemoryOnly("fresh", domain.SearchResponse{}, now)

	specs := svc.collectWarmSpecs(now.Add(time.Minute))
	if len(specs) != 1 || specs[0].key != "expired" {
		t.Fatalf("unexpected warm specs: %+v", specs)
	}
}

package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/fetch"
	"audiostream/metadataservice/internal/sites"
)

type fakeCatalog struct {
	mu         sync.Mutex
	searches   int
	details    int
	candidates []domain.Candidate
	searchErr  error
	detail     domain.BookDetail
	detailErr  error
	lastSite   sites.Context
}

func (f *fakeCatalog) Name() string { return "fake" }

func (f *fakeCatalog) Search(_ context.Context, site sites.Context, _, _ string) ([]domain.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	f.lastSite = site
	return f.candidates, f.searchErr
}

func (f *fakeCatalog) Detail(_ context.Context, site sites.Context, id string, _ bool) (domain.BookDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details++
	f.lastSite = site
	if f.detailErr != nil {
		return domain.BookDetail{}, f.detailErr
	}
	detail := f.detail
	detail.ID = id
	return detail, nil
}

func (f *fakeCatalog) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searches
}

func (f *fakeCatalog) detailCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details
}

func twoCandidates() []domain.Candidate {
	return []domain.Candidate{
		{URL: "/pd/B0MESSIAH1?qid=1", Title: "Dune Messiah"},
		{URL: "/pd/B0DUNE00001?qid=2", Title: "Dune"},
	}
}

func TestSearchRanksAndStopsAtGreatMatch(t *testing.T) {
	catalog := &fakeCatalog{candidates: twoCandidates()}
	svc := NewService(catalog, time.Second)

	resp, err := svc.Search(context.Background(), domain.BookQuery{Title: "Dune"}, domain.Preferences{}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.TotalItems != 2 {
		t.Fatalf("total items: %d", resp.TotalItems)
	}
	if len(resp.Items) != 1 || !resp.Truncated {
		t.Fatalf("expected list cut after the perfect match, got %d items truncated=%v", len(resp.Items), resp.Truncated)
	}
	if resp.Items[0].ID != "B0DUNE0000" || resp.Items[0].Score != 100 {
		t.Fatalf("unexpected top match: %+v", resp.Items[0])
	}
}

func TestSearchManualReturnsFullList(t *testing.T) {
	catalog := &fakeCatalog{candidates: twoCandidates()}
	svc := NewService(catalog, time.Second)

	resp, err := svc.Search(context.Background(), domain.BookQuery{Title: "Dune"}, domain.Preferences{}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items) != 2 || resp.Truncated {
		t.Fatalf("manual mode should keep everything: %d items truncated=%v", len(resp.Items), resp.Truncated)
	}
	if resp.Items[0].Score < resp.Items[1].Score {
		t.Fatal("items not ordered by descending score")
	}
}

func TestSearchEmptyTitleRejected(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	if _, err := svc.Search(context.Background(), domain.BookQuery{Title: "   "}, domain.Preferences{}, false); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestSearchFetchFailureDegradesToEmpty(t *testing.T) {
	catalog := &fakeCatalog{searchErr: errors.New("connection refused")}
	svc := NewService(catalog, time.Second)

	resp, err := svc.Search(context.Background(), domain.BookQuery{Title: "Dune"}, domain.Preferences{}, false)
	if err != nil {
		t.Fatalf("fetch failure must not surface as an error: %v", err)
	}
	if len(resp.Items) != 0 || resp.TotalItems != 0 {
		t.Fatalf("expected no results, got %+v", resp)
	}
}

func TestSearchServesSecondCallFromCache(t *testing.T) {
	catalog := &fakeCatalog{candidates: twoCandidates()}
	svc := NewService(catalog, time.Second)

	query := domain.BookQuery{Title: "Dune"}
	if _, err := svc.Search(context.Background(), query, domain.Preferences{}, false); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := svc.Search(context.Background(), query, domain.Preferences{}, false); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if got := catalog.searchCount(); got != 1 {
		t.Fatalf("expected 1 catalog hit, got %d", got)
	}
}

func TestSearchCacheDisabledAlwaysFetches(t *testing.T) {
	catalog := &fakeCatalog{candidates: twoCandidates()}
	svc := NewService(catalog, time.Second, WithCacheDisabled(true))

	query := domain.BookQuery{Title: "Dune"}
	for i := 0; i < 2; i++ {
		if _, err := svc.Search(context.Background(), query, domain.Preferences{}, false); err != nil {
			t.Fatalf("search %d: %v", i, err)
		}
	}
	if got := catalog.searchCount(); got != 2 {
		t.Fatalf("expected 2 catalog hits, got %d", got)
	}
}

func TestSearchManualSiteOverride(t *testing.T) {
	catalog := &fakeCatalog{}
	svc := NewService(catalog, time.Second, WithCacheDisabled(true))

	prefs := domain.Preferences{SiteMode: domain.SiteModeManual, SiteOverride: "audible.de"}
	if _, err := svc.Search(context.Background(), domain.BookQuery{Title: "Dune"}, prefs, false); err != nil {
		t.Fatalf("search: %v", err)
	}
	if catalog.lastSite.Hostname != "www.audible.de" {
		t.Fatalf("expected the German storefront, got %q", catalog.lastSite.Hostname)
	}
}

func TestResolveInvalidID(t *testing.T) {
	svc := NewService(&fakeCatalog{}, time.Second)
	for _, id := range []string{"", "short", "b0lowercase", "B0DUNE0000X"} {
		if _, err := svc.Resolve(context.Background(), id, domain.Preferences{}, domain.LanguageEnglish); !errors.Is(err, ErrInvalidItemID) {
			t.Errorf("id %q: expected ErrInvalidItemID, got %v", id, err)
		}
	}
}

func TestResolveUnknownItem(t *testing.T) {
	catalog := &fakeCatalog{detailErr: &fetch.StatusError{URL: "x", StatusCode: 404}}
	svc := NewService(catalog, time.Second)

	_, err := svc.Resolve(context.Background(), "B0DUNE0000", domain.Preferences{}, domain.LanguageEnglish)
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("expected ErrUnknownItem, got %v", err)
	}
}

func TestResolveServesSecondCallFromCache(t *testing.T) {
	catalog := &fakeCatalog{detail: domain.BookDetail{Title: "Dune"}}
	svc := NewService(catalog, time.Second)

	for i := 0; i < 2; i++ {
		if _, err := svc.Resolve(context.Background(), "B0DUNE0000", domain.Preferences{}, domain.LanguageEnglish); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if got := catalog.detailCount(); got != 1 {
		t.Fatalf("expected 1 detail fetch, got %d", got)
	}

	// A preference that changes the compiled record gets its own entry.
	prefs := domain.Preferences{CoverPolicy: domain.CoverPolicyKeepExisting}
	if _, err := svc.Resolve(context.Background(), "B0DUNE0000", prefs, domain.LanguageEnglish); err != nil {
		t.Fatalf("resolve with prefs: %v", err)
	}
	if got := catalog.detailCount(); got != 2 {
		t.Fatalf("expected 2 detail fetches, got %d", got)
	}
}

func TestResolveCompilesRecord(t *testing.T) {
	catalog := &fakeCatalog{detail: domain.BookDetail{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Narrator: "Scott Brick",
		Rating:   4.8,
		Series:   "Dune Chronicles",
		Volume:   ", Book 1",
	}}
	svc := NewService(catalog, time.Second)

	record, err := svc.Resolve(context.Background(), "B0DUNE0000", domain.Preferences{}, domain.LanguageEnglish)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if record.ID != "B0DUNE0000" || record.Title != "Dune" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.TitleSort != "Dune Chronicles, Book 1 - Dune" {
		t.Errorf("title sort: %q", record.TitleSort)
	}
	if record.Rating != 9.6 {
		t.Errorf("rating: %v", record.Rating)
	}
}

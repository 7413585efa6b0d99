package audible

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/fetch"
	"audiostream/metadataservice/internal/sites"
)

// testSite points the URL templates at a local test server while keeping
// the English labels the parser matches against.
func testSite(baseURL string) sites.Context {
	site := sites.ForLanguage(domain.LanguageEnglish)
	site.TitleSearchURL = baseURL + "/search?title=%s&author=%s"
	site.KeywordSearchURL = baseURL + "/search?keywords=%s"
	site.DetailURL = baseURL + "/pd/%s"
	return site
}

func TestProviderSearchEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("title"); got != "The Martian" {
			t.Errorf("title param: %q", got)
		}
		_, _ = w.Write([]byte(productListFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{Fetcher: fetch.NewClient(fetch.Config{Client: server.Client()})})
	candidates, err := provider.Search(context.Background(), testSite(server.URL), "The Martian", "Andy Weir")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(candidates) != 2 || candidates[0].Title != "The Martian" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestProviderDetailEndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pd/B0FALL0000" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(detailFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{Fetcher: fetch.NewClient(fetch.Config{Client: server.Client()})})
	detail, err := provider.Detail(context.Background(), testSite(server.URL), "B0FALL0000", false)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.ID != "B0FALL0000" {
		t.Errorf("id: %q", detail.ID)
	}
	if detail.Title != "The Fall of Hyperion" || detail.Author != "Dan Simmons" {
		t.Errorf("unexpected detail: %+v", detail)
	}
	if detail.PageURL == "" {
		t.Error("page url not recorded")
	}
}

func TestProviderDetailNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	provider := NewProvider(Config{Fetcher: fetch.NewClient(fetch.Config{Client: server.Client()})})
	_, err := provider.Detail(context.Background(), testSite(server.URL), "B0GONE0000", false)
	statusErr, ok := err.(*fetch.StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T (%v)", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("status: %d", statusErr.StatusCode)
	}
}

package audible

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

const productListFixture = `<html><body>
<ul>
<li class="productListItem">
  <div class="responsive-product-square"><img src="https://img.example/martian.jpg"/></div>
  <ul>
    <h3><a class="bc-link" href="/pd/B00B5HZGUG?qid=1614&sr=1-1">The Martian</a></h3>
    <li class="authorLabel"><span>By: <a>Andy Weir</a></span></li>
    <li class="narratorLabel"><span>Narrated by: <a>R. C. Bray</a></span></li>
    <li class="languageLabel"><span>Language: English</span></li>
    <li class="releaseDateLabel"><span>Release date: 03-22-14</span></li>
  </ul>
</li>
<li class="productListItem">
  <ul>
    <h3><a class="bc-link" href="/pd/B0SPARSE001">Sparse Row</a></h3>
  </ul>
</li>
</ul>
</body></html>`

func TestParseResultsPageProductList(t *testing.T) {
	candidates := ParseResultsPage(mustDoc(t, productListFixture))
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	first := candidates[0]
	if first.Title != "The Martian" {
		t.Errorf("title: %q", first.Title)
	}
	if first.URL != "/pd/B00B5HZGUG?qid=1614&sr=1-1" {
		t.Errorf("url: %q", first.URL)
	}
	if first.Author != "Andy Weir" {
		t.Errorf("author: %q", first.Author)
	}
	if first.Narrator != "R. C. Bray" {
		t.Errorf("narrator: %q", first.Narrator)
	}
	if first.Language != "English" {
		t.Errorf("language: %q", first.Language)
	}
	if first.ThumbnailURL != "https://img.example/martian.jpg" {
		t.Errorf("thumbnail: %q", first.ThumbnailURL)
	}
	want := time.Date(2014, time.March, 22, 0, 0, 0, 0, time.UTC)
	if first.ReleaseDate == nil || !first.ReleaseDate.Equal(want) {
		t.Errorf("release date: %v", first.ReleaseDate)
	}

	sparse := candidates[1]
	if sparse.Title != "Sparse Row" || sparse.URL != "/pd/B0SPARSE001" {
		t.Errorf("sparse row: %+v", sparse)
	}
	if sparse.Author != "" || sparse.Language != "" || sparse.ReleaseDate != nil {
		t.Errorf("sparse row should have absent optionals: %+v", sparse)
	}
}

const searchCardFixture = `<html><body>
<div>
  09-23-21
  <a href="/pd/B0CARD00001"><img class="yborder" src="https://img.example/card.jpg"/></a>
  <a href="/pd/B0CARD00001?ref=x">An Older Listing</a>
</div>
</body></html>`

func TestParseResultsPageSearchCards(t *testing.T) {
	candidates := ParseResultsPage(mustDoc(t, searchCardFixture))
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	card := candidates[0]
	if card.Title != "An Older Listing" {
		t.Errorf("title: %q", card.Title)
	}
	if card.URL != "/pd/B0CARD00001?ref=x" {
		t.Errorf("url: %q", card.URL)
	}
	if card.ThumbnailURL != "https://img.example/card.jpg" {
		t.Errorf("thumbnail: %q", card.ThumbnailURL)
	}
	want := time.Date(2021, time.September, 23, 0, 0, 0, 0, time.UTC)
	if card.ReleaseDate == nil || !card.ReleaseDate.Equal(want) {
		t.Errorf("release date: %v", card.ReleaseDate)
	}
}

func TestParseListingDate(t *testing.T) {
	if got := parseListingDate("Release date: 03-22-14"); got == nil || got.Year() != 2014 {
		t.Errorf("dashed shape: %v", got)
	}
	if got := parseListingDate("Erscheinungsdatum: 23.09.2021"); got == nil ||
		got.Month() != time.September || got.Day() != 23 {
		t.Errorf("dotted shape: %v", got)
	}
	if got := parseListingDate("coming soon"); got != nil {
		t.Errorf("junk should yield nil, got %v", got)
	}
}

func TestParseLooseDateStripsNoise(t *testing.T) {
	got := parseLooseDate("Available 09-23-21 (preorder)")
	if got == nil || got.Year() != 2021 || got.Month() != time.September {
		t.Fatalf("unexpected date: %v", got)
	}
}

func TestLanguageFromLabel(t *testing.T) {
	if got := languageFromLabel("Language: Deutsch"); got != "Deutsch" {
		t.Errorf("got %q", got)
	}
	if got := languageFromLabel(""); got != "" {
		t.Errorf("empty label: %q", got)
	}
}

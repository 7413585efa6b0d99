// Package audible scrapes the catalog's storefront pages: search results
// into candidate rows, detail pages into book records. All parsing is
// tolerant — the storefront ships several markup generations at once and
// any probe may come up empty.
package audible

import (
	"context"
	"log/slog"

	"audiostream/metadataservice/internal/domain"
	"audiostream/metadataservice/internal/fetch"
	"audiostream/metadataservice/internal/sites"
)

type Config struct {
	Fetcher *fetch.Client
	Logger  *slog.Logger
}

type Provider struct {
	fetcher *fetch.Client
	logger  *slog.Logger
}

func NewProvider(cfg Config) *Provider {
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = fetch.NewClient(fetch.Config{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		fetcher: fetcher,
		logger:  logger,
	}
}

func (p *Provider) Name() string {
	return "audible"
}

// Search fetches one results page for the given normalized title and
// optional author and returns its raw candidate rows, unscored.
func (p *Provider) Search(ctx context.Context, site sites.Context, title, author string) ([]domain.Candidate, error) {
	pageURL := site.SearchURL(title, author)
	doc, err := p.fetcher.Document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	candidates := ParseResultsPage(doc)
	p.logger.Debug("parsed results page",
		"site", site.Hostname,
		"url", pageURL,
		"rows", len(candidates))
	return candidates, nil
}

// Detail fetches and parses the detail page for one catalog item.
func (p *Provider) Detail(ctx context.Context, site sites.Context, id string, preferCopyrightYear bool) (domain.BookDetail, error) {
	pageURL := site.DetailPageURL(id)
	doc, err := p.fetcher.Document(ctx, pageURL)
	if err != nil {
		return domain.BookDetail{}, err
	}
	detail := ParseDetailPage(doc, site, preferCopyrightYear)
	detail.ID = id
	detail.PageURL = pageURL
	p.logger.Debug("parsed detail page",
		"site", site.Hostname,
		"id", id,
		"title", detail.Title)
	return detail, nil
}

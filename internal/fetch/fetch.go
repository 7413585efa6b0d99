// Package fetch is the single place outbound catalog requests go through:
// one shared politeness throttle, one user agent, gzip accepted, responses
// parsed straight into goquery documents.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"audiostream/metadataservice/internal/metrics"
)

const defaultUserAgent = "Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.2; Trident/4.0;" +
	"SLCC2; .NET CLR 2.0.50727; .NET CLR 3.5.30729; .NET CLR 3.0.30729;" +
	"Media Center PC 6.0"

// StatusError reports a non-2xx response from the catalog. Resolve uses the
// status code to tell "item gone" apart from transient failures.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

type Config struct {
	Client    *http.Client
	UserAgent string
	// Delay is the minimum spacing between outbound requests. Zero
	// disables throttling (tests).
	Delay time.Duration
}

type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return &Client{
		http:      httpClient,
		userAgent: userAgent,
		limiter:   limiter,
	}
}

// Document fetches one page and parses it. Blocks on the shared throttle
// first, so concurrent callers are spaced out rather than rejected.
func (c *Client) Document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// Transparent gzip is left to the transport; setting Accept-Encoding
	// manually would disable the automatic decompression.
	req.Header.Set("User-Agent", c.userAgent)

	site := req.URL.Hostname()
	startedAt := time.Now()
	resp, err := c.http.Do(req)
	metrics.CatalogRequestDuration.WithLabelValues(site).Observe(time.Since(startedAt).Seconds())
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(site, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	metrics.CatalogRequestsTotal.WithLabelValues(site, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

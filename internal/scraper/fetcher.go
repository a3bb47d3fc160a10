package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/FranksOps/gleaner/pkg/httpclient"
	"github.com/google/uuid"
)

// Page is the outcome of fetching a single URL.
type Page struct {
	ID         string
	URL        string
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
	// Error is non-empty if the request failed before a response was read.
	Error string
}

// OK reports whether the page was retrieved with a 2xx status.
func (p *Page) OK() bool {
	return p != nil && p.Error == "" && p.StatusCode >= 200 && p.StatusCode < 300
}

// Failure describes why a page is unusable, or "" if it is OK.
func (p *Page) Failure() string {
	switch {
	case p == nil:
		return "no result"
	case p.Error != "":
		return p.Error
	case !p.OK():
		return fmt.Sprintf("status %d", p.StatusCode)
	}
	return ""
}

// PageFetcher retrieves page bytes for a URL.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Page, error)
}

// FetchConfig configures the HTTP fetcher.
type FetchConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodySize  int64
	UserAgent    string
	UseCookieJar bool
	Transport    http.RoundTripper
}

// Fetcher performs single URL fetches over one shared client, so connections
// and cookies (if enabled) are reused for the lifetime of a crawl.
type Fetcher struct {
	client *httpclient.Client
}

var _ PageFetcher = (*Fetcher)(nil)

// NewFetcher initializes a new Fetcher with the given configuration.
func NewFetcher(cfg FetchConfig) (*Fetcher, error) {
	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		MaxBodySize:  cfg.MaxBodySize,
		UserAgent:    cfg.UserAgent,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return &Fetcher{client: client}, nil
}

// Fetch executes a GET request to the target URL. Transport failures are
// reported through Page.Error rather than the returned error, which is always
// nil for this implementation.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	start := time.Now()
	page := &Page{
		ID:        uuid.New().String(),
		URL:       targetURL,
		FetchedAt: start.UTC(),
	}

	resp, err := f.client.Get(ctx, targetURL)
	page.Duration = time.Since(start)
	if err != nil {
		page.Error = fmt.Sprintf("request failed: %v", err)
		return page, nil
	}

	page.StatusCode = resp.StatusCode
	page.Headers = resp.Header
	page.Body = resp.Body
	return page, nil
}

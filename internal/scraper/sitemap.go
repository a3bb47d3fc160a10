package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oxffaa/gopher-parse-sitemap"
)

// maxSitemapNesting bounds how many sitemap indexes may be chained.
const maxSitemapNesting = 3

// ClaimFunc gates a URL before it is fetched. It returns the URL to fetch and
// whether fetching it is allowed. An error aborts the sitemap walk.
type ClaimFunc func(ctx context.Context, rawURL string) (string, bool, error)

// claimError marks a ClaimFunc failure so it is not mistaken for a broken
// nested sitemap.
type claimError struct{ err error }

func (e *claimError) Error() string { return e.err.Error() }
func (e *claimError) Unwrap() error { return e.err }

// SitemapFetcher fetches and parses sitemaps to discover extra crawl seeds.
type SitemapFetcher struct {
	fetcher PageFetcher
	claim   ClaimFunc
	logger  *slog.Logger
}

// NewSitemapFetcher initializes a new SitemapFetcher. Every sitemap URL,
// nested ones included, passes through claim before it is fetched; a nil
// claim fetches everything listed.
func NewSitemapFetcher(fetcher PageFetcher, claim ClaimFunc, logger *slog.Logger) *SitemapFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &SitemapFetcher{
		fetcher: fetcher,
		claim:   claim,
		logger:  logger,
	}
}

// FetchSitemap fetches a urlset or a sitemap index and returns every listed
// page location, following nested indexes.
func (s *SitemapFetcher) FetchSitemap(ctx context.Context, sitemapURL string) ([]string, error) {
	return s.fetch(ctx, sitemapURL, 0, map[string]bool{})
}

func (s *SitemapFetcher) fetch(ctx context.Context, sitemapURL string, depth int, seen map[string]bool) ([]string, error) {
	if s.claim != nil {
		u, ok, err := s.claim(ctx, sitemapURL)
		if err != nil {
			return nil, &claimError{err: err}
		}
		if !ok {
			s.logger.Debug("skipping sitemap", "url", sitemapURL)
			return nil, nil
		}
		sitemapURL = u
	}
	if seen[sitemapURL] {
		return nil, nil
	}
	seen[sitemapURL] = true

	s.logger.Debug("fetching sitemap", "url", sitemapURL, "depth", depth)

	page, err := s.fetcher.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}
	if !page.OK() {
		return nil, fmt.Errorf("fetch sitemap %s: %s", sitemapURL, page.Failure())
	}

	var urls []string
	parseErr := sitemap.Parse(bytes.NewReader(page.Body), func(e sitemap.Entry) error {
		urls = append(urls, e.GetLocation())
		return nil
	})
	if parseErr == nil && len(urls) > 0 {
		return urls, nil
	}

	var nested []string
	indexErr := sitemap.ParseIndex(bytes.NewReader(page.Body), func(e sitemap.IndexEntry) error {
		nested = append(nested, e.GetLocation())
		return nil
	})
	if indexErr != nil || len(nested) == 0 {
		if err := errors.Join(parseErr, indexErr); err != nil {
			return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
		}
		return nil, fmt.Errorf("sitemap %s lists no locations", sitemapURL)
	}

	if depth >= maxSitemapNesting {
		s.logger.Warn("sitemap index nested too deeply", "url", sitemapURL)
		return nil, nil
	}

	for _, nestedURL := range nested {
		more, err := s.fetch(ctx, nestedURL, depth+1, seen)
		if err != nil {
			var ce *claimError
			if errors.As(err, &ce) {
				return nil, err
			}
			s.logger.Warn("failed to fetch nested sitemap", "url", nestedURL, "err", err)
			continue
		}
		urls = append(urls, more...)
	}
	return urls, nil
}

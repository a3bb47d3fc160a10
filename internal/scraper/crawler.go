package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/FranksOps/gleaner/internal/extract"
	"github.com/FranksOps/gleaner/internal/metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// CrawlConfig provides parameters for the same-origin crawler.
type CrawlConfig struct {
	// Concurrency bounds the number of fetches in flight. Values <= 1 give a
	// synchronous depth-first traversal with one fetch at a time.
	Concurrency int
	// MaxPages caps how many URLs a crawl may claim (0 = unlimited).
	MaxPages int
	// Extractors run in order on every fetched page. Defaults to extract.Default().
	Extractors []extract.Extractor
	// Visited defaults to a fresh MemoryVisited.
	Visited VisitedSet
	// UseSitemap also visits same-origin URLs listed in <origin>/sitemap.xml.
	UseSitemap bool
	// CrawlID is attached to every log record when set.
	CrawlID string
}

// CrawlResult holds the facts found in a set of pages, keyed by extractor kind.
type CrawlResult struct {
	Facts map[string]extract.FactSet
}

func NewCrawlResult() CrawlResult {
	return CrawlResult{Facts: make(map[string]extract.FactSet)}
}

// Of returns the facts of one kind. The result is never nil.
func (r CrawlResult) Of(kind string) extract.FactSet {
	if s, ok := r.Facts[kind]; ok {
		return s
	}
	return extract.NewFactSet()
}

func (r CrawlResult) Emails() extract.FactSet { return r.Of(extract.KindEmail) }
func (r CrawlResult) Phones() extract.FactSet { return r.Of(extract.KindPhone) }

func (r CrawlResult) add(kind string, facts extract.FactSet) {
	s, ok := r.Facts[kind]
	if !ok {
		s = extract.NewFactSet()
		r.Facts[kind] = s
	}
	s.Merge(facts)
}

// Merge unions other into r.
func (r CrawlResult) Merge(other CrawlResult) {
	for kind, facts := range other.Facts {
		r.add(kind, facts)
	}
}

// Stats counts what happened during a crawl.
type Stats struct {
	PagesVisited   int64
	FetchFailures  int64
	OffOriginLinks int64
	DuplicateLinks int64
	PageLimitDrops int64
}

// Crawler walks every page reachable from a seed through same-origin links,
// fetching each URL at most once.
type Crawler struct {
	origin     Origin
	cfg        CrawlConfig
	fetcher    PageFetcher
	resolver   LinkResolver
	sitemaps   *SitemapFetcher
	visited    VisitedSet
	extractors []extract.Extractor
	logger     *slog.Logger
	sem        *semaphore.Weighted

	claimed        atomic.Int64
	pagesVisited   atomic.Int64
	fetchFailures  atomic.Int64
	offOriginLinks atomic.Int64
	duplicateLinks atomic.Int64
	pageLimitDrops atomic.Int64
}

// NewCrawler creates a crawler bound to origin.
func NewCrawler(origin Origin, cfg CrawlConfig, fetcher PageFetcher, resolver LinkResolver, logger *slog.Logger) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CrawlID != "" {
		logger = logger.With("crawl_id", cfg.CrawlID)
	}
	if resolver == nil {
		resolver = NewHTMLLinkResolver(logger)
	}
	if cfg.Visited == nil {
		cfg.Visited = NewMemoryVisited()
	}
	if len(cfg.Extractors) == 0 {
		cfg.Extractors = extract.Default()
	}

	c := &Crawler{
		origin:     origin,
		cfg:        cfg,
		fetcher:    fetcher,
		resolver:   resolver,
		visited:    cfg.Visited,
		extractors: cfg.Extractors,
		logger:     logger,
	}
	if cfg.Concurrency > 1 {
		c.sem = semaphore.NewWeighted(int64(cfg.Concurrency))
	}
	if cfg.UseSitemap {
		c.sitemaps = NewSitemapFetcher(fetcher, c.claimURL, logger)
	}
	return c
}

// Origin returns the crawl boundary.
func (c *Crawler) Origin() Origin {
	return c.origin
}

// Run crawls the origin starting at seed and returns the union of facts over
// every visited page. Fetch failures are logged and skipped; only context
// cancellation or a visited-set failure is returned as an error.
func (c *Crawler) Run(ctx context.Context, seed string) (CrawlResult, error) {
	if !c.origin.Contains(seed) {
		return NewCrawlResult(), fmt.Errorf("%w: %s is outside %s", ErrInvalidSeed, seed, c.origin)
	}

	result, err := c.Visit(ctx, seed)
	if err != nil {
		return result, err
	}

	if c.sitemaps != nil {
		more, err := c.visitSitemap(ctx)
		result.Merge(more)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// Visit claims rawURL and crawls everything reachable from it that has not
// been claimed yet. An already claimed or off-origin URL yields an empty result.
func (c *Crawler) Visit(ctx context.Context, rawURL string) (CrawlResult, error) {
	u, ok, err := c.claim(ctx, rawURL)
	if err != nil || !ok {
		return NewCrawlResult(), err
	}
	return c.visit(ctx, u)
}

// Stats returns a snapshot of the crawl counters.
func (c *Crawler) Stats() Stats {
	return Stats{
		PagesVisited:   c.pagesVisited.Load(),
		FetchFailures:  c.fetchFailures.Load(),
		OffOriginLinks: c.offOriginLinks.Load(),
		DuplicateLinks: c.duplicateLinks.Load(),
		PageLimitDrops: c.pageLimitDrops.Load(),
	}
}

// claim applies the origin boundary, the visited set and the page limit to
// rawURL. The returned URL is normalized and owned by the caller, who must
// visit it.
func (c *Crawler) claim(ctx context.Context, rawURL string) (string, bool, error) {
	u, ok, err := c.claimURL(ctx, rawURL)
	if err != nil || !ok {
		return "", false, err
	}

	if n := c.claimed.Add(1); c.cfg.MaxPages > 0 && n > int64(c.cfg.MaxPages) {
		c.pageLimitDrops.Add(1)
		metrics.RecordLinkDiscarded("page_limit")
		c.logger.Debug("page limit reached, not following", "url", u, "max_pages", c.cfg.MaxPages)
		return "", false, nil
	}

	return u, true, nil
}

// claimURL is claim without the page limit. Sitemap documents go through it
// so they are fetched at most once and never off-origin.
func (c *Crawler) claimURL(ctx context.Context, rawURL string) (string, bool, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		c.logger.Debug("dropping malformed link", "url", rawURL, "err", err)
		metrics.RecordLinkDiscarded("malformed")
		return "", false, nil
	}

	if !c.origin.Contains(u) {
		c.offOriginLinks.Add(1)
		metrics.RecordLinkDiscarded("off_origin")
		return "", false, nil
	}

	ok, err := c.visited.Claim(ctx, u)
	if err != nil {
		return "", false, fmt.Errorf("claim %s: %w", u, err)
	}
	if !ok {
		c.duplicateLinks.Add(1)
		metrics.RecordLinkDiscarded("visited")
		return "", false, nil
	}

	return u, true, nil
}

// visit fetches an already claimed URL, extracts its facts and recurses into
// the links it claims.
func (c *Crawler) visit(ctx context.Context, pageURL string) (CrawlResult, error) {
	result := NewCrawlResult()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	page, err := c.fetch(ctx, pageURL)
	if err != nil {
		return result, err
	}
	if !page.OK() {
		c.fetchFailures.Add(1)
		c.logger.Error("fetch failed", "url", pageURL, "err", page.Failure())
		return result, nil
	}

	c.pagesVisited.Add(1)
	c.logger.Info("visited", "url", pageURL)

	text := string(page.Body)
	for _, ex := range c.extractors {
		facts := ex.Extract(text)
		metrics.RecordFacts(ex.Kind(), facts.Len())
		result.add(ex.Kind(), facts)
	}

	if !isHTML(page.Headers) {
		return result, nil
	}

	var next []string
	for _, link := range c.resolver.ResolveLinks(pageURL, page.Body) {
		u, ok, err := c.claim(ctx, link)
		if err != nil {
			return result, err
		}
		if ok {
			next = append(next, u)
		}
	}

	sub, err := c.visitAll(ctx, next)
	result.Merge(sub)
	return result, err
}

// visitAll visits claimed URLs one after another, or concurrently when a
// fetch semaphore is configured.
func (c *Crawler) visitAll(ctx context.Context, urls []string) (CrawlResult, error) {
	result := NewCrawlResult()

	if c.sem == nil {
		for _, u := range urls {
			sub, err := c.visit(ctx, u)
			result.Merge(sub)
			if err != nil {
				return result, err
			}
		}
		return result, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for _, u := range urls {
		g.Go(func() error {
			sub, err := c.visit(gCtx, u)
			mu.Lock()
			result.Merge(sub)
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()
	return result, err
}

// fetch retrieves a page. The only error it returns is a cancelled wait for
// a fetch slot; fetcher errors are folded into Page.Error.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*Page, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer c.sem.Release(1)
	}

	c.logger.Debug("fetching", "url", pageURL)
	page, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil || page == nil {
		failure := "no result"
		if err != nil {
			failure = err.Error()
		}
		page = &Page{URL: pageURL, Error: failure}
	}

	metrics.RecordFetch(c.origin.Host, page.StatusCode, !page.OK(), page.Duration, len(page.Body))
	return page, nil
}

func (c *Crawler) visitSitemap(ctx context.Context) (CrawlResult, error) {
	sitemapURL := c.origin.String() + "/sitemap.xml"
	locs, err := c.sitemaps.FetchSitemap(ctx, sitemapURL)
	var ce *claimError
	if errors.As(err, &ce) {
		return NewCrawlResult(), err
	}
	if err != nil {
		c.logger.Warn("sitemap unavailable", "url", sitemapURL, "err", err)
		return NewCrawlResult(), nil
	}

	var next []string
	for _, loc := range locs {
		u, ok, err := c.claim(ctx, loc)
		if err != nil {
			return NewCrawlResult(), err
		}
		if ok {
			next = append(next, u)
		}
	}
	c.logger.Debug("sitemap seeds", "url", sitemapURL, "listed", len(locs), "new", len(next))
	return c.visitAll(ctx, next)
}

// isHTML treats a missing Content-Type as HTML.
func isHTML(headers map[string][]string) bool {
	vals := headers["Content-Type"]
	if len(vals) == 0 {
		return true
	}
	return strings.Contains(strings.ToLower(vals[0]), "html")
}

// Package pipeline wires a crawl run together: crawl one origin, reconcile
// the facts into records, persist them and summarise the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/gleaner/internal/config"
	"github.com/FranksOps/gleaner/internal/reconcile"
	"github.com/FranksOps/gleaner/internal/report"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Pipeline runs a single crawl from seed to persisted records.
type Pipeline struct {
	Crawler *scraper.Crawler
	Saver   *reconcile.Saver
	Logger  *slog.Logger

	CrawlID string
	// Output names the destination in the summary.
	Output string

	closers []func(context.Context) error
}

// Outcome is everything a finished run produced.
type Outcome struct {
	Result  scraper.CrawlResult
	Records []storage.Record
	Summary report.Summary
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

type options struct {
	fetcher scraper.PageFetcher
	backend storage.Backend
	redis   redis.UniversalClient
}

// WithFetcher replaces the HTTP fetcher.
func WithFetcher(f scraper.PageFetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithBackend replaces the storage backend named in config.
func WithBackend(b storage.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithRedis supplies the client for a shared visited set, taking precedence
// over config.RedisAddr.
func WithRedis(c redis.UniversalClient) Option {
	return func(o *options) { o.redis = c }
}

// New builds a pipeline for cfg. The crawl origin is taken from cfg.Seed.
// Callers must Close the pipeline to release the backend and Redis state.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (p *Pipeline, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	origin, err := scraper.ParseOrigin(cfg.Seed)
	if err != nil {
		return nil, err
	}

	crawlID := cfg.CrawlID
	if crawlID == "" {
		crawlID = uuid.NewString()
	}
	p = &Pipeline{
		Logger:  logger.With("crawl_id", crawlID),
		CrawlID: crawlID,
		Output:  cfg.Output,
	}
	defer func() {
		if err != nil {
			_ = p.Close(context.WithoutCancel(ctx))
		}
	}()

	fetcher := o.fetcher
	if fetcher == nil {
		f, err := scraper.NewFetcher(scraper.FetchConfig{
			Timeout:      cfg.Timeout,
			MaxRedirects: cfg.MaxRedirects,
			MaxBodySize:  cfg.MaxBodySize,
			UserAgent:    cfg.UserAgent,
			UseCookieJar: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
		fetcher = f
	}

	visited, err := p.visitedSet(ctx, cfg, o.redis)
	if err != nil {
		return nil, err
	}

	backend := o.backend
	if backend == nil {
		target := cfg.Output
		if cfg.Backend == "sqlite" || cfg.Backend == "postgres" {
			target = cfg.DSN
			p.Output = cfg.Backend
		}
		backend, err = OpenBackend(ctx, cfg.Backend, target)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func(context.Context) error { return backend.Close() })
	}

	p.Crawler = scraper.NewCrawler(origin, scraper.CrawlConfig{
		Concurrency: cfg.Concurrency,
		MaxPages:    cfg.MaxPages,
		Visited:     visited,
		UseSitemap:  cfg.UseSitemap,
		CrawlID:     crawlID,
	}, fetcher, scraper.NewHTMLLinkResolver(logger), logger)
	p.Saver = reconcile.NewSaver(backend, p.Logger)

	return p, nil
}

func (p *Pipeline) visitedSet(ctx context.Context, cfg config.Config, client redis.UniversalClient) (scraper.VisitedSet, error) {
	if client == nil {
		if cfg.RedisAddr == "" {
			return scraper.NewMemoryVisited(), nil
		}
		c := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := c.Ping(ctx).Err(); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		p.closers = append(p.closers, func(context.Context) error { return c.Close() })
		client = c
	}

	visited := scraper.NewRedisVisited(client, p.CrawlID)
	// Closers run in reverse, so the set is dropped before the client closes.
	p.closers = append(p.closers, visited.Close)
	p.Logger.Debug("using redis visited set", "key", visited.Key())
	return visited, nil
}

// Run crawls from seed, pairs the facts into records and saves them. It
// fails only for an invalid seed, a visited-set failure, cancellation or a
// persistence failure; unreachable pages are logged and skipped.
func (p *Pipeline) Run(ctx context.Context, seed string) (Outcome, error) {
	summary := report.Summary{
		CrawlID:   p.CrawlID,
		Seed:      seed,
		Output:    p.Output,
		StartTime: time.Now(),
	}
	p.Logger.Info("crawl started", "seed", seed, "origin", p.Crawler.Origin().String())

	result, err := p.Crawler.Run(ctx, seed)
	out := Outcome{Result: result}
	p.fillStats(&summary, result)
	if err != nil {
		summary.Finish(time.Now())
		out.Summary = summary
		return out, fmt.Errorf("crawl %s: %w", seed, err)
	}

	out.Records, err = p.Saver.Save(ctx, result.Emails(), result.Phones())
	summary.Records = len(out.Records)
	summary.Finish(time.Now())
	out.Summary = summary
	if err != nil {
		return out, err
	}

	p.Logger.Info("crawl finished",
		"pages", summary.PagesVisited,
		"fetch_failures", summary.FetchFailures,
		"records", summary.Records,
		"duration", summary.Duration,
	)
	return out, nil
}

func (p *Pipeline) fillStats(s *report.Summary, result scraper.CrawlResult) {
	st := p.Crawler.Stats()
	s.PagesVisited = int(st.PagesVisited)
	s.FetchFailures = int(st.FetchFailures)
	s.OffOriginLinks = int(st.OffOriginLinks)
	s.DuplicateLinks = int(st.DuplicateLinks)
	s.PageLimitDrops = int(st.PageLimitDrops)
	s.Emails = result.Emails().Len()
	s.Phones = result.Phones().Len()
}

// Close releases everything New acquired, most recent first.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

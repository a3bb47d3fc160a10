package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/FranksOps/gleaner/internal/config"
	"github.com/FranksOps/gleaner/internal/scraper"
	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSite serves fixed HTML bodies and records every fetch.
type staticSite struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (s *staticSite) Fetch(_ context.Context, u string) (*scraper.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, u)

	body, ok := s.pages[u]
	if !ok {
		return &scraper.Page{URL: u, Error: "request failed: connection refused"}, nil
	}
	return &scraper.Page{
		URL:        u,
		StatusCode: http.StatusOK,
		Headers:    map[string][]string{"Content-Type": {"text/html"}},
		Body:       []byte(body),
	}, nil
}

func scenarioSite() *staticSite {
	return &staticSite{pages: map[string]string{
		"http://site.test/": `<html><body>Write to a@x.com
			<a href="/b">B</a> <a href="http://other.test/c">C</a></body></html>`,
		"http://site.test/b":  `<html><body>Call +1-555-000-1111 <a href="/">home</a></body></html>`,
		"http://other.test/c": `<html><body>c@other.test</body></html>`,
	}}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Seed = "http://site.test/"
	cfg.Output = filepath.Join(t.TempDir(), config.DefaultOutput)
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPipeline_EndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	site := scenarioSite()

	p, err := New(ctx, cfg, quietLogger(), WithFetcher(site))
	require.NoError(t, err)
	defer p.Close(ctx)

	out, err := p.Run(ctx, cfg.Seed)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"http://site.test/", "http://site.test/b"}, site.calls)
	assert.Equal(t, []storage.Record{{Email: "a@x.com", Phone: "+15550001111"}}, out.Records)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, "Email,Phone\na@x.com,+15550001111\n", string(data))

	assert.Equal(t, 2, out.Summary.PagesVisited)
	assert.Equal(t, 1, out.Summary.OffOriginLinks)
	assert.Equal(t, 1, out.Summary.Records)
	assert.Equal(t, p.CrawlID, out.Summary.CrawlID)
	assert.False(t, out.Summary.EndTime.Before(out.Summary.StartTime))
}

func TestPipeline_SeedUnreachable(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	site := &staticSite{pages: map[string]string{}}

	p, err := New(ctx, cfg, quietLogger(), WithFetcher(site))
	require.NoError(t, err)
	defer p.Close(ctx)

	out, err := p.Run(ctx, cfg.Seed)
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Equal(t, 1, out.Summary.FetchFailures)

	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, "Email,Phone\n", string(data))
}

func TestPipeline_InvalidSeed(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	cfg.Seed = "mailto:a@x.com"
	_, err := New(ctx, cfg, quietLogger(), WithFetcher(scenarioSite()))
	assert.True(t, errors.Is(err, scraper.ErrInvalidSeed), "got %v", err)

	cfg.Seed = "http://site.test/"
	p, err := New(ctx, cfg, quietLogger(), WithFetcher(scenarioSite()))
	require.NoError(t, err)
	defer p.Close(ctx)

	_, err = p.Run(ctx, "http://other.test/c")
	assert.True(t, errors.Is(err, scraper.ErrInvalidSeed), "got %v", err)
}

type failingBackend struct{}

func (failingBackend) Save(context.Context, []storage.Record) error { return errors.New("read-only") }
func (failingBackend) Query(context.Context, storage.Filter) ([]storage.Record, error) {
	return nil, nil
}
func (failingBackend) Close() error { return nil }

func TestPipeline_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	p, err := New(ctx, cfg, quietLogger(), WithFetcher(scenarioSite()), WithBackend(failingBackend{}))
	require.NoError(t, err)
	defer p.Close(ctx)

	out, err := p.Run(ctx, cfg.Seed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.Len(t, out.Records, 1)
}

func TestPipeline_RedisVisitedSet(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.CrawlID = "shared"

	db, mock := redismock.NewClientMock()
	key := "gleaner:visited:shared"
	mock.ExpectSAdd(key, "http://site.test/").SetVal(1)
	mock.ExpectSAdd(key, "http://site.test/b").SetVal(1)
	mock.ExpectSAdd(key, "http://site.test/").SetVal(0)
	mock.ExpectDel(key).SetVal(1)

	p, err := New(ctx, cfg, quietLogger(), WithFetcher(scenarioSite()), WithRedis(db))
	require.NoError(t, err)

	out, err := p.Run(ctx, cfg.Seed)
	require.NoError(t, err)
	assert.Len(t, out.Records, 1)
	assert.Equal(t, 1, out.Summary.DuplicateLinks)

	require.NoError(t, p.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipeline_FixedCrawlIDRerun(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.CrawlID = "nightly"

	db, mock := redismock.NewClientMock()
	key := "gleaner:visited:nightly"

	for run := range 2 {
		mock.ExpectSAdd(key, "http://site.test/").SetVal(1)
		mock.ExpectSAdd(key, "http://site.test/b").SetVal(1)
		mock.ExpectSAdd(key, "http://site.test/").SetVal(0)
		mock.ExpectDel(key).SetVal(1)

		p, err := New(ctx, cfg, quietLogger(), WithFetcher(scenarioSite()), WithRedis(db))
		require.NoError(t, err, "run %d", run)

		out, err := p.Run(ctx, cfg.Seed)
		require.NoError(t, err, "run %d", run)
		assert.Len(t, out.Records, 1, "run %d", run)
		assert.Equal(t, 2, out.Summary.PagesVisited, "run %d", run)

		require.NoError(t, p.Close(ctx), "run %d", run)
		require.NoError(t, mock.ExpectationsWereMet(), "run %d", run)
	}

	rows, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Contains(t, string(rows), "@")
}

func TestPipeline_RedisVisitedSetDroppedOnClose(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	db, mock := redismock.NewClientMock()
	site := &staticSite{pages: map[string]string{}}

	p, err := New(ctx, cfg, quietLogger(), WithFetcher(site), WithRedis(db))
	require.NoError(t, err)

	key := "gleaner:visited:" + p.CrawlID
	mock.ExpectSAdd(key, "http://site.test/").SetVal(1)
	mock.ExpectDel(key).SetVal(1)

	_, err = p.Run(ctx, cfg.Seed)
	require.NoError(t, err)
	require.NoError(t, p.Close(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, kind := range []string{"csv", "json"} {
		b, err := OpenBackend(ctx, kind, filepath.Join(dir, "out."+kind))
		require.NoError(t, err, kind)
		require.NoError(t, b.Save(ctx, []storage.Record{{Email: "a@x.com"}}))
		require.NoError(t, b.Close())
	}

	b, err := OpenBackend(ctx, "sqlite", filepath.Join(dir, "gleaner.db"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = OpenBackend(ctx, "xml", "out.xml")
	assert.True(t, errors.Is(err, ErrUnknownBackend))
}

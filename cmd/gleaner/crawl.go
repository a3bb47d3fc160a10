package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/gleaner/internal/config"
	"github.com/FranksOps/gleaner/internal/metrics"
	"github.com/FranksOps/gleaner/internal/pipeline"
	"github.com/FranksOps/gleaner/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <seed-url>",
		Short: "Crawl one origin and save the contacts found",
		Long: `Crawl fetches the seed URL, follows every link that stays on the seed's
scheme, host and port, and visits each such page once. Pages that fail to
load are logged and skipped.

Examples:
  # Write extracted_data.csv in the current directory
  gleaner crawl https://example.com/

  # Four concurrent fetches, at most 500 pages, NDJSON output
  gleaner crawl -n 4 -p 500 --backend json -o contacts.jsonl https://example.com/

  # Share the visited set through Redis and expose Prometheus metrics
  gleaner crawl --redis-addr localhost:6379 --metrics-port 9090 https://example.com/`,
		Args: cobra.ExactArgs(1),
		RunE: runCrawlCmd,
	}

	d := config.NewConfig()
	f := cmd.Flags()
	f.StringP(config.KeyOutput, "o", d.Output, "Output file for the csv and json backends")
	f.String(config.KeyBackend, d.Backend, "Storage backend: csv, json, sqlite or postgres")
	f.String(config.KeyDSN, "", "Database DSN for the sqlite and postgres backends")
	f.IntP(config.KeyConcurrency, "n", d.Concurrency, "Maximum concurrent fetches")
	f.IntP(config.KeyMaxPages, "p", 0, "Maximum pages to visit (0 = unlimited)")
	f.DurationP(config.KeyTimeout, "t", d.Timeout, "Timeout for each request")
	f.Int(config.KeyMaxRedirects, d.MaxRedirects, "Redirects to follow per request (-1 disables)")
	f.Int64(config.KeyMaxBodySize, d.MaxBodySize, "Maximum bytes read from each response")
	f.String(config.KeyUserAgent, d.UserAgent, "User-Agent header")
	f.Bool(config.KeySitemap, false, "Also visit same-origin URLs listed in /sitemap.xml")
	f.String(config.KeyRedisAddr, "", "Keep the visited set in Redis at host:port")
	f.String(config.KeyCrawlID, "", "Crawl ID used in logs and the Redis visited-set key (generated when empty)")
	f.Int(config.KeyMetricsPort, 0, "Serve Prometheus metrics on this port (0 = off)")
	f.String(config.KeyReport, d.ReportFormat, "Summary written to stdout: none, text, json or html")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	cfg.Seed = args[0]
	if getVerboseFlag(cmd) {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runCrawl(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer, opts ...pipeline.Option) error {
	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort, logger)
		defer func() { _ = srv.Stop(context.WithoutCancel(ctx)) }()
	}

	p, err := pipeline.New(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("cleanup failed", "err", err)
		}
	}()

	outcome, err := p.Run(ctx, cfg.Seed)
	if err != nil {
		return err
	}

	if cfg.ReportFormat == "none" {
		return nil
	}
	return report.Write(out, cfg.ReportFormat, outcome.Summary)
}

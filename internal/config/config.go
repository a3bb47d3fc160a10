// Package config loads crawl settings from defaults, an optional config
// file, GLEANER_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	DefaultOutput       = "extracted_data.csv"
	DefaultBackend      = "csv"
	DefaultConcurrency  = 1
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRedirects = 10
	DefaultMaxBodySize  = 10 * 1024 * 1024
	DefaultUserAgent    = "gleaner/1.0 (+https://github.com/FranksOps/gleaner)"
	DefaultReportFormat = "text"

	// EnvPrefix prefixes every environment variable, e.g. GLEANER_OUTPUT.
	EnvPrefix = "GLEANER"
)

// Keys shared by viper, environment variables and flags.
const (
	KeySeed         = "seed"
	KeyOutput       = "output"
	KeyBackend      = "backend"
	KeyDSN          = "dsn"
	KeyConcurrency  = "concurrency"
	KeyMaxPages     = "max-pages"
	KeyTimeout      = "timeout"
	KeyMaxRedirects = "max-redirects"
	KeyMaxBodySize  = "max-body-size"
	KeyUserAgent    = "user-agent"
	KeySitemap      = "sitemap"
	KeyRedisAddr    = "redis-addr"
	KeyCrawlID      = "crawl-id"
	KeyMetricsPort  = "metrics-port"
	KeyReport       = "report"
	KeyVerbose      = "verbose"
)

// Config holds every setting of a crawl run.
type Config struct {
	Seed string

	// Output is the artifact path for the csv and json backends.
	Output string
	// Backend is one of csv, json, sqlite, postgres.
	Backend string
	// DSN addresses the sqlite file or postgres database.
	DSN string

	Concurrency  int
	MaxPages     int
	Timeout      time.Duration
	MaxRedirects int
	MaxBodySize  int64
	UserAgent    string
	UseSitemap   bool

	// RedisAddr switches the visited set to Redis when set.
	RedisAddr string
	// CrawlID names the crawl in logs and in the Redis visited-set key.
	// Generated when empty. The set is deleted when the run closes.
	CrawlID string
	// MetricsPort serves /metrics when > 0.
	MetricsPort int

	ReportFormat string
	Verbose      bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() Config {
	return Config{
		Output:       DefaultOutput,
		Backend:      DefaultBackend,
		Concurrency:  DefaultConcurrency,
		Timeout:      DefaultTimeout,
		MaxRedirects: DefaultMaxRedirects,
		MaxBodySize:  DefaultMaxBodySize,
		UserAgent:    DefaultUserAgent,
		ReportFormat: DefaultReportFormat,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := NewConfig()
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyConcurrency, d.Concurrency)
	v.SetDefault(KeyTimeout, d.Timeout)
	v.SetDefault(KeyMaxRedirects, d.MaxRedirects)
	v.SetDefault(KeyMaxBodySize, d.MaxBodySize)
	v.SetDefault(KeyUserAgent, d.UserAgent)
	v.SetDefault(KeyReport, d.ReportFormat)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration. configFile may be empty; flags may be nil.
// Only flags the user actually set override the file and the environment.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || !isKey(f.Name) {
				return
			}
			if f.Changed {
				bindErr = v.BindPFlag(f.Name, f)
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	return Config{
		Seed:         v.GetString(KeySeed),
		Output:       v.GetString(KeyOutput),
		Backend:      strings.ToLower(v.GetString(KeyBackend)),
		DSN:          v.GetString(KeyDSN),
		Concurrency:  v.GetInt(KeyConcurrency),
		MaxPages:     v.GetInt(KeyMaxPages),
		Timeout:      v.GetDuration(KeyTimeout),
		MaxRedirects: v.GetInt(KeyMaxRedirects),
		MaxBodySize:  v.GetInt64(KeyMaxBodySize),
		UserAgent:    v.GetString(KeyUserAgent),
		UseSitemap:   v.GetBool(KeySitemap),
		RedisAddr:    v.GetString(KeyRedisAddr),
		CrawlID:      v.GetString(KeyCrawlID),
		MetricsPort:  v.GetInt(KeyMetricsPort),
		ReportFormat: strings.ToLower(v.GetString(KeyReport)),
		Verbose:      v.GetBool(KeyVerbose),
	}, nil
}

func isKey(name string) bool {
	switch name {
	case KeySeed, KeyOutput, KeyBackend, KeyDSN, KeyConcurrency, KeyMaxPages,
		KeyTimeout, KeyMaxRedirects, KeyMaxBodySize, KeyUserAgent, KeySitemap,
		KeyRedisAddr, KeyCrawlID, KeyMetricsPort, KeyReport, KeyVerbose:
		return true
	}
	return false
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Seed) == "" {
		return ErrNoSeed
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return ErrInvalidMetricsPort
	}

	switch c.Backend {
	case "csv", "json":
	case "sqlite", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("%w: %s", ErrMissingDSN, c.Backend)
		}
	default:
		return ErrInvalidBackend
	}

	switch c.ReportFormat {
	case "none", "text", "json", "html":
	default:
		return ErrInvalidReport
	}

	return nil
}

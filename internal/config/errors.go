package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	ErrNoSeed             = errors.New("no seed URL specified")
	ErrInvalidTimeout     = errors.New("invalid timeout: must be positive")
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be at least 1")
	ErrInvalidMaxPages    = errors.New("invalid max pages: must be non-negative")
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
	ErrInvalidBackend     = errors.New("invalid backend: must be one of csv, json, sqlite, postgres")
	ErrMissingDSN         = errors.New("backend requires a DSN")
	ErrInvalidReport      = errors.New("invalid report format: must be one of none, text, json, html")
	ErrInvalidMetricsPort = errors.New("invalid metrics port")
)

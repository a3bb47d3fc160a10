package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/FranksOps/gleaner/internal/storage"
	"github.com/FranksOps/gleaner/internal/storage/csvbackend"
	"github.com/FranksOps/gleaner/internal/storage/jsonbackend"
	"github.com/FranksOps/gleaner/internal/storage/postgres"
	"github.com/FranksOps/gleaner/internal/storage/sqlite"
)

// ErrUnknownBackend is returned by OpenBackend for an unsupported kind.
var ErrUnknownBackend = errors.New("unknown storage backend")

// OpenBackend opens the named storage backend. For csv and json, target is
// the artifact path; for sqlite and postgres it is the DSN.
func OpenBackend(ctx context.Context, kind, target string) (storage.Backend, error) {
	var (
		b   storage.Backend
		err error
	)
	switch kind {
	case "", "csv":
		b, err = csvbackend.New(target)
	case "json":
		b, err = jsonbackend.New(target)
	case "sqlite":
		b, err = sqlite.New(target)
	case "postgres":
		b, err = postgres.New(ctx, target)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", kind, err)
	}
	return b, nil
}

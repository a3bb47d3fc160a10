package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/FranksOps/gleaner/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	path string
}

// New creates a new NDJSON-backed storage.Backend, one record per line.
func New(filePath string) (storage.Backend, error) {
	if filePath == "" {
		return nil, errors.New("jsonbackend: empty file path")
	}
	return &jsonBackend{path: filePath}, nil
}

func (b *jsonBackend) Save(ctx context.Context, records []storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := storage.WriteAtomic(b.path, func(f *os.File) error {
		w := bufio.NewWriter(f)
		enc := json.NewEncoder(w)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("encode record: %w", err)
			}
		}
		return w.Flush()
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []storage.Record{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", b.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	records := []storage.Record{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		if filter.Match(r) {
			records = append(records, r)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", b.path, err)
	}

	return filter.Page(records), nil
}

func (b *jsonBackend) Close() error {
	return nil
}

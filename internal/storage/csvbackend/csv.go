package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/gleaner/internal/storage"
)

// DefaultPath is the artifact name used when no output path is configured.
const DefaultPath = "extracted_data.csv"

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	path string
}

// New creates a CSV-backed storage.Backend writing to filePath. The file is
// not touched until the first Save.
func New(filePath string) (storage.Backend, error) {
	if filePath == "" {
		filePath = DefaultPath
	}
	return &csvBackend{path: filePath}, nil
}

// Save replaces the artifact with a header row followed by records, in order.
func (b *csvBackend) Save(ctx context.Context, records []storage.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err := storage.WriteAtomic(b.path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(storage.Header); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for _, r := range records {
			if err := w.Write([]string{r.Email, r.Phone}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", b.path, err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]storage.Record, error) {
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

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(storage.Header)

	// Read headers
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []storage.Record{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	records := []storage.Record{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		rec := storage.Record{Email: row[0], Phone: row[1]}
		if filter.Match(rec) {
			records = append(records, rec)
		}
	}

	return filter.Page(records), nil
}

func (b *csvBackend) Close() error {
	return nil
}

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Record is one output row. At least one field is non-empty once saved.
type Record struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Empty reports whether both fields are blank.
func (r Record) Empty() bool {
	return r.Email == "" && r.Phone == ""
}

// Header is the column order of every tabular backend.
var Header = []string{"Email", "Phone"}

// Filter allows querying saved records.
type Filter struct {
	// Email and Phone match as substrings when non-empty.
	Email  string
	Phone  string
	Limit  int
	Offset int
}

// Match reports whether r passes the field filters. Limit and Offset are not applied.
func (f Filter) Match(r Record) bool {
	if f.Email != "" && !strings.Contains(r.Email, f.Email) {
		return false
	}
	if f.Phone != "" && !strings.Contains(r.Phone, f.Phone) {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice.
func (f Filter) Page(records []Record) []Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend persists the reconciled table of one run.
type Backend interface {
	// Save replaces the stored table with records. A failed Save leaves any
	// previously stored table intact.
	Save(ctx context.Context, records []Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
	Close() error
}

// WriteAtomic writes to a temporary file next to path and renames it into
// place, so readers never observe a partial artifact.
func WriteAtomic(path string, write func(f *os.File) error) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Package reconcile turns the crawl's email and phone sets into output rows
// and hands them to a storage backend.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/FranksOps/gleaner/internal/extract"
	"github.com/FranksOps/gleaner/internal/storage"
)

var validPhone = regexp.MustCompile(`^\+?\d{10,15}$`)

// NormalizePhone reduces a phone candidate to digits with an optional leading
// plus. It returns "" when the result is not a plausible phone number.
func NormalizePhone(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if !validPhone.MatchString(out) {
		return ""
	}
	return out
}

// Pair packs emails and normalized phones into rows by popping one element
// from each side until both are exhausted. An email and a phone sharing a
// row were not necessarily found on the same page. Distinct candidates that
// normalize to the same number each keep their own row. The input sets are
// left untouched.
func Pair(emails, phones extract.FactSet) []storage.Record {
	es := extract.NewFactSet()
	es.Merge(emails)

	ps := make([]string, 0, phones.Len())
	for p := range phones {
		if n := NormalizePhone(p); n != "" {
			ps = append(ps, n)
		}
	}

	n := max(es.Len(), len(ps))
	records := make([]storage.Record, 0, n)
	for range n {
		var r storage.Record
		r.Email, _ = es.Pop()
		if len(ps) > 0 {
			r.Phone = ps[len(ps)-1]
			ps = ps[:len(ps)-1]
		}
		if r.Empty() {
			continue
		}
		records = append(records, r)
	}
	return records
}

// Saver pairs crawl results and persists them.
type Saver struct {
	Backend storage.Backend
	Logger  *slog.Logger
}

// NewSaver returns a Saver writing to backend.
func NewSaver(backend storage.Backend, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{Backend: backend, Logger: logger}
}

// Save pairs emails with phones and writes the rows. The rows are returned
// even when persisting them fails.
func (s *Saver) Save(ctx context.Context, emails, phones extract.FactSet) ([]storage.Record, error) {
	records := Pair(emails, phones)

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := s.Backend.Save(ctx, records); err != nil {
		return records, fmt.Errorf("persist %d records: %w", len(records), err)
	}

	logger.Info("records saved",
		"records", len(records),
		"emails", emails.Len(),
		"phone_candidates", phones.Len(),
	)
	return records, nil
}

package scraper

import (
	"context"
	"sync"
)

// VisitedSet records every URL claimed during one crawl. It only grows.
type VisitedSet interface {
	// Claim atomically inserts url and reports whether this call inserted it.
	// Exactly one caller wins for any url, however many race for it.
	Claim(ctx context.Context, url string) (bool, error)
	Seen(ctx context.Context, url string) (bool, error)
	Len(ctx context.Context) (int, error)
}

// MemoryVisited is an in-process VisitedSet.
type MemoryVisited struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

var _ VisitedSet = (*MemoryVisited)(nil)

func NewMemoryVisited() *MemoryVisited {
	return &MemoryVisited{urls: make(map[string]struct{})}
}

func (m *MemoryVisited) Claim(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.urls[url]; ok {
		return false, nil
	}
	m.urls[url] = struct{}{}
	return true, nil
}

func (m *MemoryVisited) Seen(_ context.Context, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.urls[url]
	return ok, nil
}

func (m *MemoryVisited) Len(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls), nil
}

// URLs returns a snapshot of the claimed URLs in no particular order.
func (m *MemoryVisited) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.urls))
	for u := range m.urls {
		out = append(out, u)
	}
	return out
}

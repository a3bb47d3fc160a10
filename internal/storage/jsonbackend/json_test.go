package jsonbackend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranksOps/gleaner/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "contacts.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	records := []storage.Record{
		{Email: "a@x.com", Phone: "+15550001111"},
		{Email: "b@x.com"},
	}

	if err := b.Save(ctx, records); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	data, _ := os.ReadFile(filePath)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != `{"email":"a@x.com","phone":"+15550001111"}` {
		t.Errorf("Unexpected first line %s", lines[0])
	}

	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if len(all) != 2 || all[1] != records[1] {
		t.Errorf("Unexpected query result %v", all)
	}

	byEmail, err := b.Query(ctx, storage.Filter{Email: "b@"})
	if err != nil {
		t.Fatalf("Failed to query by email: %v", err)
	}
	if len(byEmail) != 1 || byEmail[0].Email != "b@x.com" {
		t.Errorf("Expected b@x.com, got %v", byEmail)
	}

	limited, err := b.Query(ctx, storage.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Failed to query limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 result, got %d", len(limited))
	}
}

func TestJSONBackend_EmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFilter_MatchAndPage(t *testing.T) {
	records := []Record{
		{Email: "a@x.com", Phone: "+15550001111"},
		{Email: "b@x.com"},
		{Phone: "+442079460958"},
	}

	var matched []Record
	f := Filter{Email: "x.com"}
	for _, r := range records {
		if f.Match(r) {
			matched = append(matched, r)
		}
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}

	if got := (Filter{Offset: 1, Limit: 1}).Page(records); !reflect.DeepEqual(got, records[1:2]) {
		t.Errorf("expected %v, got %v", records[1:2], got)
	}
	if got := (Filter{Offset: 5}).Page(records); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
}

func TestRecord_Empty(t *testing.T) {
	if !(Record{}).Empty() {
		t.Error("zero record should be empty")
	}
	if (Record{Phone: "+15550001111"}).Empty() {
		t.Error("record with a phone is not empty")
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	if err := os.WriteFile(path, []byte("previous"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	failure := errors.New("disk full")
	err := WriteAtomic(path, func(f *os.File) error {
		_, _ = f.WriteString("partial")
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected write error to surface, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "previous" {
		t.Errorf("failed write must leave the old artifact intact, got %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp file to be cleaned up, found %d entries", len(entries))
	}

	if err := WriteAtomic(path, func(f *os.File) error {
		_, err := f.WriteString("fresh")
		return err
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "fresh" {
		t.Errorf("expected fresh content, got %q", data)
	}
}

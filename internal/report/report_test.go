package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSummary_Finish(t *testing.T) {
	start := time.Now()
	s := Summary{StartTime: start}
	s.Finish(start.Add(2 * time.Second))

	if s.Duration != 2*time.Second {
		t.Errorf("expected 2s duration, got %v", s.Duration)
	}
}

func TestWriteJSON(t *testing.T) {
	summary := Summary{
		PagesVisited: 5,
	}
	var buf bytes.Buffer
	err := WriteJSON(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), `"PagesVisited": 5`) {
		t.Errorf("expected JSON to contain PagesVisited: 5")
	}
}

func TestWriteText(t *testing.T) {
	summary := Summary{
		Seed:          "http://site.test/",
		PagesVisited:  5,
		FetchFailures: 1,
		Records:       3,
		Output:        "extracted_data.csv",
	}
	var buf bytes.Buffer
	err := WriteText(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Pages:         5 visited, 1 failed") {
		t.Errorf("expected text to contain page counts, got:\n%s", out)
	}
	if !strings.Contains(out, "Records:       3 -> extracted_data.csv") {
		t.Errorf("expected text to contain record count, got:\n%s", out)
	}
	if strings.Contains(out, "Page limit") {
		t.Errorf("page limit line should be omitted when nothing was dropped")
	}
}

func TestWriteHTML(t *testing.T) {
	summary := Summary{
		Seed:          "http://site.test/?a=<b>",
		PagesVisited:  10,
		FetchFailures: 2,
	}
	var buf bytes.Buffer
	err := WriteHTML(&buf, summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "<title>Gleaner Crawl Report</title>") {
		t.Errorf("expected HTML title")
	}
	if strings.Contains(out, "a=<b>") {
		t.Errorf("expected seed to be escaped")
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "xml", Summary{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

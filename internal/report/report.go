package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	texttemplate "text/template"
	"time"
)

// Summary contains aggregated metrics about one crawl.
type Summary struct {
	CrawlID        string
	Seed           string
	Output         string
	PagesVisited   int
	FetchFailures  int
	OffOriginLinks int
	DuplicateLinks int
	PageLimitDrops int
	Emails         int
	Phones         int
	Records        int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// Finish stamps the end of the crawl and derives Duration.
func (s *Summary) Finish(end time.Time) {
	s.EndTime = end
	if !s.StartTime.IsZero() {
		s.Duration = end.Sub(s.StartTime)
	}
}

// Write renders summary in the named format: text, json or html.
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

const textTmpl = `Gleaner Crawl Summary
---------------------
Crawl:         {{.CrawlID}}
Seed:          {{.Seed}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Pages:         {{.PagesVisited}} visited, {{.FetchFailures}} failed
Links skipped: {{.OffOriginLinks}} off-origin, {{.DuplicateLinks}} already seen
{{- if gt .PageLimitDrops 0}}
Page limit:    {{.PageLimitDrops}} links dropped
{{- end}}

Emails:        {{.Emails}}
Phones:        {{.Phones}} candidates
Records:       {{.Records}}{{if .Output}} -> {{.Output}}{{end}}
`

var textReport = texttemplate.Must(texttemplate.New("textReport").Parse(textTmpl))

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render text report: %w", err)
	}
	return nil
}

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Gleaner Crawl Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
</style>
</head>
<body>
  <h1>Gleaner Crawl Report</h1>
  <p><strong>Seed:</strong> {{.Seed}} <small>({{.CrawlID}})</small></p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>Pages Visited</div>
    <div class="stat-val">{{.PagesVisited}}</div>
  </div>
  <div class="stat-card">
    <div>Fetch Failures</div>
    <div class="stat-val" style="color: {{if gt .FetchFailures 0}}red{{else}}green{{end}};">{{.FetchFailures}}</div>
  </div>
  <div class="stat-card">
    <div>Records</div>
    <div class="stat-val">{{.Records}}</div>
  </div>

  <h3>Facts</h3>
  <table>
    <tr><th>Kind</th><th>Count</th></tr>
    <tr><td>Emails</td><td>{{.Emails}}</td></tr>
    <tr><td>Phone candidates</td><td>{{.Phones}}</td></tr>
  </table>

  <h3>Skipped Links</h3>
  <table>
    <tr><th>Reason</th><th>Count</th></tr>
    <tr><td>Off-origin</td><td>{{.OffOriginLinks}}</td></tr>
    <tr><td>Already seen</td><td>{{.DuplicateLinks}}</td></tr>
    <tr><td>Page limit</td><td>{{.PageLimitDrops}}</td></tr>
  </table>
</body>
</html>
`

var htmlReport = template.Must(template.New("htmlReport").Parse(htmlTmpl))

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	if err := htmlReport.Execute(w, summary); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

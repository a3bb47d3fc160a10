package scraper

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkResolver turns a page body into absolute URLs relative to the page's
// own URL. The result may contain duplicates and off-origin URLs.
type LinkResolver interface {
	ResolveLinks(baseURL string, body []byte) []string
}

// HTMLLinkResolver resolves every <a href> on an HTML page.
type HTMLLinkResolver struct {
	logger *slog.Logger
}

var _ LinkResolver = (*HTMLLinkResolver)(nil)

// NewHTMLLinkResolver creates a resolver. A nil logger falls back to slog.Default().
func NewHTMLLinkResolver(logger *slog.Logger) *HTMLLinkResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLLinkResolver{logger: logger}
}

func (r *HTMLLinkResolver) ResolveLinks(baseURL string, body []byte) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		r.logger.Debug("unparsable page url", "url", baseURL, "err", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		r.logger.Debug("unparsable html", "url", baseURL, "err", err)
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		u, err := url.Parse(href)
		if err != nil {
			// A single bad href never spoils the rest of the page.
			r.logger.Debug("dropping malformed link", "page", baseURL, "href", href, "err", err)
			return
		}

		resolved := base.ResolveReference(u)
		resolved.Fragment = ""
		resolved.RawFragment = ""
		links = append(links, resolved.String())
	})

	return links
}

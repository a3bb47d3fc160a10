package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidSeed is returned when a seed URL has no usable http(s) origin.
var ErrInvalidSeed = errors.New("invalid seed url")

// Origin is the scheme and host (with port, if any) that bounds a crawl.
type Origin struct {
	Scheme string
	Host   string
}

// ParseOrigin extracts the origin of an absolute http(s) URL.
func ParseOrigin(rawURL string) (Origin, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Origin{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Origin{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}
	if u.Host == "" {
		return Origin{}, fmt.Errorf("%w: missing host", ErrInvalidSeed)
	}
	return Origin{Scheme: scheme, Host: canonicalHost(scheme, u.Host)}, nil
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// canonicalHost lower-cases host and drops the scheme's default port, so
// http://x.test:80/ and http://x.test/ name the same page.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	port, ok := defaultPorts[scheme]
	if !ok {
		return host
	}
	return strings.TrimSuffix(host, ":"+port)
}

func (o Origin) String() string {
	return o.Scheme + "://" + o.Host
}

// Contains reports whether rawURL shares this origin.
func (o Origin) Contains(rawURL string) bool {
	other, err := ParseOrigin(rawURL)
	if err != nil {
		return false
	}
	return other == o
}

// NormalizeURL returns the canonical visited-set key for rawURL: the fragment
// is dropped, scheme and host are lower-cased, a default port is removed and
// an empty path becomes "/".
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u.Scheme, u.Host)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

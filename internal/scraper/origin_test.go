package scraper

import (
	"errors"
	"testing"
)

func TestParseOrigin(t *testing.T) {
	o, err := ParseOrigin("HTTPS://Example.COM:8443/path?q=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.String() != "https://example.com:8443" {
		t.Errorf("expected https://example.com:8443, got %s", o)
	}

	for _, bad := range []string{"ftp://example.com", "example.com/page", "http://", "::"} {
		if _, err := ParseOrigin(bad); !errors.Is(err, ErrInvalidSeed) {
			t.Errorf("%q: expected ErrInvalidSeed, got %v", bad, err)
		}
	}
}

func TestParseOrigin_DefaultPort(t *testing.T) {
	for raw, want := range map[string]string{
		"http://site.test:80/":    "http://site.test",
		"https://site.test:443/x": "https://site.test",
		"https://site.test:80/":   "https://site.test:80",
	} {
		o, err := ParseOrigin(raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if o.String() != want {
			t.Errorf("ParseOrigin(%q) = %s, want %s", raw, o, want)
		}
	}

	a, _ := ParseOrigin("https://site.test:443")
	b, _ := ParseOrigin("https://site.test")
	if a != b {
		t.Errorf("expected %s and %s to be the same origin", a, b)
	}
}

func TestOrigin_Contains(t *testing.T) {
	o, _ := ParseOrigin("http://site.test")

	cases := map[string]bool{
		"http://site.test/":        true,
		"http://SITE.test/a?b=c":   true,
		"http://site.test":         true,
		"https://site.test/":       false,
		"http://site.test:81/":     false,
		"http://site.test:80/a":    true,
		"http://site.test:8080/":   false,
		"https://site.test:443/":   false,
		"http://www.site.test/":    false,
		"mailto:someone@site.test": false,
		"javascript:void(0)":       false,
		"/relative/path":           false,
	}
	for u, want := range cases {
		if got := o.Contains(u); got != want {
			t.Errorf("Contains(%q) = %v, want %v", u, got, want)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"http://Site.Test":            "http://site.test/",
		"http://site.test/a#section":  "http://site.test/a",
		"HTTP://site.test/a?x=1#frag": "http://site.test/a?x=1",
		"http://site.test/A":          "http://site.test/A",
		"http://site.test:80/a":       "http://site.test/a",
		"HTTPS://Site.Test:443/a":     "https://site.test/a",
		"https://site.test:80/a":      "https://site.test:80/a",
		"http://site.test:8080":       "http://site.test:8080/",
		"http://[::1]:80/":            "http://[::1]/",
	}
	for in, want := range cases {
		got, err := NormalizeURL(in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

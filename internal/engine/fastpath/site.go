// Package fastpath implements the Fast Path Executor: an HTTP-only,
// two-stage (search listing then product detail) route through the
// upstream catalog. It is the cheap path the Orchestrator always tries
// before paying for a headless browser.
package fastpath

import (
	"fmt"
	"net/url"
)

// Site describes the upstream's externally-defined URL templates. The
// engine is not hard-coded to one host: an alternate upstream can be
// wired in at construction without touching executor logic.
type Site struct {
	BaseURL    string
	SearchPath string
	DetailPath string
}

// DefaultSite returns the reference catalog's URL shapes.
func DefaultSite() Site {
	return Site{
		BaseURL:    "https://search.example-catalog.test",
		SearchPath: "/search",
		DetailPath: "/info/",
	}
}

// SearchURL builds the search-listing request URL for candidate,
// matching the upstream contract `{base}/search?query={urlenc}&originalQuery={urlenc}`.
func (s Site) SearchURL(candidate string) string {
	v := url.Values{}
	v.Set("query", candidate)
	v.Set("originalQuery", candidate)
	return fmt.Sprintf("%s%s?%s", s.BaseURL, s.SearchPath, v.Encode())
}

// DetailURL builds the product-detail request URL for pcode, matching
// `{base}/info/?pcode={digits}&keyword={urlenc}`.
func (s Site) DetailURL(pcode, keyword string) string {
	v := url.Values{}
	v.Set("pcode", pcode)
	v.Set("keyword", keyword)
	return fmt.Sprintf("%s%s?%s", s.BaseURL, s.DetailPath, v.Encode())
}

// ResolveURL normalizes targetURL against baseURL: protocol-relative
// (`//host/...`) picks up baseURL's scheme, an absolute path (`/path`)
// picks up baseURL's host, and an already-absolute URL passes through
// unchanged.
func ResolveURL(baseURL, targetURL string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	target, err := url.Parse(targetURL)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(target).String(), nil
}

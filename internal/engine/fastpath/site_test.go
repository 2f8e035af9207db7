package fastpath_test

import (
	"testing"

	"github.com/darkkaiser/pricesearch/internal/engine/fastpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	cases := []struct {
		name   string
		base   string
		target string
		want   string
	}{
		{"already absolute", "https://search.example-catalog.test/info/", "https://cdn.example.test/img.png", "https://cdn.example.test/img.png"},
		{"protocol relative", "https://search.example-catalog.test/info/", "//cdn.example.test/img.png", "https://cdn.example.test/img.png"},
		{"absolute path", "https://search.example-catalog.test/info/?pcode=1", "/buy/1", "https://search.example-catalog.test/buy/1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fastpath.ResolveURL(tc.base, tc.target)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSite_URLBuilders(t *testing.T) {
	site := fastpath.Site{BaseURL: "https://shop.test", SearchPath: "/search", DetailPath: "/info/"}

	searchURL := site.SearchURL("맥북 에어 M4")
	assert.Contains(t, searchURL, "https://shop.test/search?")
	assert.Contains(t, searchURL, "query=")
	assert.Contains(t, searchURL, "originalQuery=")

	detailURL := site.DetailURL("222", "맥북 에어 M4")
	assert.Contains(t, detailURL, "https://shop.test/info/?")
	assert.Contains(t, detailURL, "pcode=222")
	assert.Contains(t, detailURL, "keyword=")
}

package fastpath

import "strings"

const (
	defaultMinHTMLLength      = 5000
	defaultTrustLargeHTMLSize = 50000
)

// blockKeywords are case-insensitive substrings that identify a known
// anti-bot interstitial rather than the real page.
var blockKeywords = []string{
	"access denied",
	"captcha",
	"cloudflare challenge",
	"just a moment",
	"verify you are human",
	"접속이 차단되었습니다",
}

// noResultMarkers mark a listing response as a confirmed empty search
// rather than a structural anomaly.
var noResultMarkers = []string{
	"검색 결과가 없습니다",
}

// contentValid implements the content-validity heuristic applied to
// every fetched HTML response: empty or too short is invalid, a
// positive structural fingerprint short-circuits to valid, an exact
// block-keyword match is invalid, and otherwise only a response large
// enough to trust on size alone is valid. Anything left is rejected
// conservatively rather than risked.
func contentValid(html string, hasFingerprint bool, minLength, trustLargeSize int) bool {
	trimmed := strings.TrimSpace(html)
	if trimmed == "" {
		return false
	}
	if len(trimmed) < minLength {
		return false
	}
	if hasFingerprint {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range blockKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}

	return len(trimmed) > trustLargeSize
}

func containsNoResultMarker(html string) bool {
	for _, marker := range noResultMarkers {
		if strings.Contains(html, marker) {
			return true
		}
	}
	return false
}

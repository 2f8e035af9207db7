package fastpath

import (
	"strings"

	"github.com/darkkaiser/pricesearch/pkg/strutil"
)

// accessoryBrandHints names catalog sellers known primarily for device
// accessories rather than devices themselves. This is the detail-time
// brand filter, distinct from the Match Scorer's title-token accessory
// trap (case/film/pouch keywords inside the candidate title itself).
var accessoryBrandHints = []string{
	"spigen", "nomad", "totallee", "moshi", "tucano", "uag",
	"스피젠", "토탈리",
}

// accessoryBrandMatcher matches any known accessory-maker brand in a
// product title, case-insensitively. The single pipe-joined group makes
// the whole hint list one OR condition.
var accessoryBrandMatcher = strutil.NewKeywordMatcher(
	[]string{strings.Join(accessoryBrandHints, "|")}, nil)

var accessoryMainProductHints = []string{
	"노트북", "맥북", "laptop", "이어폰", "earphone", "모니터", "monitor",
	"아이폰", "iphone", "갤럭시", "galaxy",
}

// isAccessory reports whether productTitle looks like an accessory
// listing for query rather than the device itself: it carries a known
// accessory-maker brand and shares no main-product hint with query.
func isAccessory(query, productTitle string) bool {
	if !accessoryBrandMatcher.Match(productTitle) {
		return false
	}

	lowerTitle := strings.ToLower(productTitle)
	lowerQuery := strings.ToLower(query)
	for _, hint := range accessoryMainProductHints {
		h := strings.ToLower(hint)
		if strings.Contains(lowerQuery, h) && strings.Contains(lowerTitle, h) {
			return false
		}
	}
	return true
}

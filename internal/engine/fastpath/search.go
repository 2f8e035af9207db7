package fastpath

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	selectorSearchProductItem = ".prod_item .prod_name a"
	selectorSearchPcodeLink   = `a[href*="pcode="]`

	maxSearchCandidates = 3
	maxRankedProducts   = 12
)

// pcodeRe extracts the upstream's opaque product identifier from an
// href, accepting either of its two observed query-parameter names.
var pcodeRe = regexp.MustCompile(`(?:pcode|prod_id)=(\d+)`)

// candidateProduct is a product ID surfaced from a search listing page,
// with whatever link text and resolved URL were available for scoring
// and for building the eventual result.
type candidateProduct struct {
	ProductID string
	Title     string
	Link      string
}

// searchPhase tries candidates in order (capped at 3), stopping at the
// first one whose listing response is content-valid and not a
// confirmed empty search, then ranks that response's product IDs
// against the very candidate that produced them -- never against the
// original query, to preserve year-strip invariance. A candidate whose
// listing parses but whose products all score zero is not a confirmed
// empty search (ErrNoResults); it's ErrNoViableCandidate, and the next
// candidate (or ultimately the Slow Path) still gets a chance.
func (e *Executor) searchPhase(ctx context.Context, candidates []string, deadline time.Time) ([]candidateProduct, string, error) {
	if len(candidates) > maxSearchCandidates {
		candidates = candidates[:maxSearchCandidates]
	}

	var lastErr error
	for _, candidate := range candidates {
		if !time.Now().Before(deadline) {
			return nil, "", NewErrTimeout(context.DeadlineExceeded)
		}

		reqCtx, cancel := e.requestContext(ctx, deadline)
		doc, raw, err := e.fetchSearchPage(reqCtx, candidate)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		if containsNoResultMarker(raw) {
			return nil, "", ErrNoResults
		}

		products := extractCandidateProducts(doc, raw)
		hasFingerprint := len(products) > 0

		if !contentValid(raw, hasFingerprint, e.minHTMLLength, e.trustLargeHTMLSize) {
			lastErr = NewErrBlocked(e.site.SearchURL(candidate))
			continue
		}
		if len(products) == 0 {
			lastErr = NewErrParseError(e.site.SearchURL(candidate), "no product markers found in search response")
			continue
		}

		ranked := e.rankProducts(candidate, products)
		if len(ranked) == 0 {
			lastErr = ErrNoViableCandidate
			continue
		}

		return ranked, candidate, nil
	}

	if lastErr != nil {
		return nil, "", lastErr
	}
	return nil, "", ErrNoResults
}

// extractCandidateProducts parses product IDs from a listing document
// using structured selectors first, falling back to a raw regex sweep
// of the page source when selectors find nothing -- the upstream's
// markup changes more often than its URL scheme does.
func extractCandidateProducts(doc *goquery.Document, raw string) []candidateProduct {
	seen := map[string]bool{}
	var products []candidateProduct

	var base *url.URL
	if doc != nil {
		base = doc.Url
	}

	collect := func(sel string) {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			title := strings.TrimSpace(s.Text())
			if p, ok := candidateFromHref(href, title, base, seen); ok {
				products = append(products, p)
			}
		})
	}

	collect(selectorSearchProductItem)
	collect(selectorSearchPcodeLink)

	if len(products) == 0 {
		for _, m := range pcodeRe.FindAllStringSubmatch(raw, -1) {
			id := m[1]
			if seen[id] {
				continue
			}
			seen[id] = true
			products = append(products, candidateProduct{ProductID: id})
		}
	}

	return products
}

func candidateFromHref(href, title string, base *url.URL, seen map[string]bool) (candidateProduct, bool) {
	if href == "" {
		return candidateProduct{}, false
	}

	m := pcodeRe.FindStringSubmatch(href)
	if m == nil {
		return candidateProduct{}, false
	}

	id := m[1]
	if seen[id] {
		return candidateProduct{}, false
	}
	seen[id] = true

	link := href
	if base != nil {
		if resolved, err := ResolveURL(base.String(), href); err == nil {
			link = resolved
		}
	}

	return candidateProduct{ProductID: id, Title: title, Link: link}, true
}

// rankProducts orders products by score against candidate and keeps
// the top 12. It deliberately does not apply a minimum-score cutoff
// here -- the design notes record that an earlier score<40 listing
// filter was removed after upstream selector changes pushed every
// candidate below threshold. The one exception is an exact score of 0
// on a product whose link text was available: that value is the
// scorer's hard-disqualification signal (accessory trap, chip
// mismatch, screen-size mismatch), not a weak match, and is excluded
// here rather than left for the detail phase to discover the expensive
// way. Products with no link text (regex-only fallback hits) carry no
// disqualification signal and are always kept.
func (e *Executor) rankProducts(candidate string, products []candidateProduct) []candidateProduct {
	type ranked struct {
		candidateProduct
		score float64
	}

	scored := make([]ranked, 0, len(products))
	for _, p := range products {
		if p.Title == "" {
			scored = append(scored, ranked{candidateProduct: p, score: 0})
			continue
		}

		score := e.scorer.Score(candidate, p.Title)
		if score == 0 {
			continue
		}
		scored = append(scored, ranked{candidateProduct: p, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > maxRankedProducts {
		scored = scored[:maxRankedProducts]
	}

	out := make([]candidateProduct, len(scored))
	for i, r := range scored {
		out[i] = r.candidateProduct
	}
	return out
}

package slowpath

import (
	"context"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/darkkaiser/pricesearch/internal/engine/fastpath"
	"github.com/darkkaiser/pricesearch/internal/engine/query"
	"github.com/darkkaiser/pricesearch/internal/engine/scorer"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
	"github.com/darkkaiser/pricesearch/pkg/maputil"
	"github.com/darkkaiser/pricesearch/pkg/strutil"
	"github.com/go-rod/rod"
	"golang.org/x/time/rate"
)

const component = "engine.slowpath"

const (
	selectorProductLink  = `a[href*="pcode="], a[href*="prod_id="]`
	selectorProductTitle = ".prod_tit"
	selectorLowPriceArea = "#lowPriceCompanyArea"
	selectorMallItem     = "#lowPriceCompanyArea .mall_item"
	selectorMallName     = ".mall_name"
	selectorMallPrice    = ".price"
	selectorFreeShipping = ".delivery.free"
	selectorDelivery     = ".delivery"
	selectorDiscontinued = ".prod_notice_discontinued, .item_not_found"

	maxSearchCandidates = 3
	maxListingLinks     = 12
	maxMallOffers       = 3

	// listingSelectorWait caps how long one candidate's listing page may
	// be waited on for its product links, so a blocked first candidate
	// cannot starve the remaining candidates and the detail phase of the
	// whole stage budget.
	listingSelectorWait = 3 * time.Second

	// acceptThresholdPreferred and acceptThresholdLow implement the
	// two-tier listing acceptance policy: a score at or above the
	// preferred threshold is a confident match, one between the two is
	// accepted but would be worth logging as low-confidence, and
	// anything below the low threshold returns no candidate at all.
	acceptThresholdPreferred = 30.0
	acceptThresholdLow       = 10.0

	reverifyThreshold  = 45.0
	detailMinRemaining = 2 * time.Second

	defaultRateLimitMin = 500 * time.Millisecond
	defaultRateLimitMax = 1500 * time.Millisecond

	// navRateLimit and navRateBurst bound browser navigations against
	// the upstream across all concurrent searches, on top of the
	// per-search randomized sleep between detail fetches.
	navRateLimit = rate.Limit(2)
	navRateBurst = 2
)

var pcodeRe = regexp.MustCompile(`(?:pcode|prod_id)=(\d+)`)

// Executor is the common interface both the browser-backed implementation
// and Disabled satisfy, so the Orchestrator never branches on deployment
// mode.
type Executor interface {
	Execute(ctx context.Context, q query.Query, timeout time.Duration) (fastpath.Result, error)
}

// Config tunes the Slow Path's rate limiting between detail fetches and
// its browser resource discipline.
type Config struct {
	Browser      BrowserConfig
	RateLimitMin time.Duration
	RateLimitMax time.Duration

	// ProductIDHint is a process-wide default for the search-phase skip
	// described on query.Query.ProductIDHint. Real callers set the hint
	// per search on the Query instead, since the handoff is specific to
	// one Fast Path failure, not a standing executor configuration; this
	// field only matters for tests that exercise the skip path directly.
	ProductIDHint string
}

// DefaultConfig returns the reference defaults: browser defaults plus a
// 0.5-1.5 s randomized rate limit between detail fetches.
func DefaultConfig() Config {
	return Config{
		Browser:      DefaultBrowserConfig(),
		RateLimitMin: defaultRateLimitMin,
		RateLimitMax: defaultRateLimitMax,
	}
}

// RodExecutor is the headless-browser Slow Path. One instance is shared
// process-wide; Execute is safe to call concurrently up to the
// configured browser concurrency.
type RodExecutor struct {
	browser *sharedBrowser
	scorer  scorer.Scorer
	site    fastpath.Site
	cfg     Config
	limiter *rate.Limiter
}

var _ Executor = (*RodExecutor)(nil)

// New builds a RodExecutor. It does not launch the browser; that happens
// lazily on the first Execute call.
func New(sc scorer.Scorer, site fastpath.Site, cfg Config) *RodExecutor {
	if cfg.RateLimitMin <= 0 {
		cfg.RateLimitMin = defaultRateLimitMin
	}
	if cfg.RateLimitMax < cfg.RateLimitMin {
		cfg.RateLimitMax = cfg.RateLimitMin
	}
	if cfg.Browser.Concurrency <= 0 {
		cfg.Browser = DefaultBrowserConfig()
	}

	return &RodExecutor{
		browser: newSharedBrowser(cfg.Browser),
		scorer:  sc,
		site:    site,
		cfg:     cfg,
		limiter: rate.NewLimiter(navRateLimit, navRateBurst),
	}
}

// Close tears down the shared browser. Call once at process shutdown.
func (e *RodExecutor) Close() error {
	return e.browser.Close()
}

// Execute runs the search-then-detail algorithm against q within
// timeout, acquiring a page from the shared browser's concurrency
// semaphore for each of its two phases.
func (e *RodExecutor) Execute(ctx context.Context, q query.Query, timeout time.Duration) (fastpath.Result, error) {
	deadline := time.Now().Add(timeout)

	var productID, matchedCandidate string
	hint := q.ProductIDHint
	if hint == "" {
		hint = e.cfg.ProductIDHint
	}
	if hint != "" {
		productID = hint
		matchedCandidate = q.Normalized
	} else {
		id, candidate, err := e.searchPhase(ctx, q.Candidates, deadline)
		if err != nil {
			return fastpath.Result{}, err
		}
		productID, matchedCandidate = id, candidate
	}

	if time.Until(deadline) < detailMinRemaining {
		return fastpath.Result{}, ErrNoResults
	}

	return e.detailPhase(ctx, q.Normalized, matchedCandidate, productID, deadline)
}

// searchPhase acquires a page, navigates through candidates in order
// (capped at 3), waits for a product-link selector on each, and scores
// up to 12 collected links against the candidate that produced them.
func (e *RodExecutor) searchPhase(ctx context.Context, candidates []string, deadline time.Time) (productID, matchedCandidate string, err error) {
	acquireTimeout := time.Until(deadline) + e.cfg.Browser.AcquireCushion
	if err := e.browser.acquire(ctx, acquireTimeout); err != nil {
		return "", "", err
	}
	defer e.browser.release()

	page, err := e.browser.newPage(ctx)
	if err != nil {
		return "", "", err
	}
	defer page.Close()

	if len(candidates) > maxSearchCandidates {
		candidates = candidates[:maxSearchCandidates]
	}

	var lastErr error
	for _, candidate := range candidates {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", "", NewErrTimeout(ctx.Err())
		}

		if err := e.waitNavSlot(ctx, deadline); err != nil {
			return "", "", err
		}
		remaining = time.Until(deadline)
		if remaining <= 0 {
			return "", "", NewErrTimeout(ctx.Err())
		}

		navURL := e.site.SearchURL(candidate)
		bounded := page.Context(ctx).Timeout(remaining)
		if err := bounded.Navigate(navURL); err != nil {
			lastErr = NewErrTimeout(err)
			continue
		}

		// Element (singular) retries until the selector appears or the
		// timeout fires; Elements alone would read the DOM once, right
		// after domcontentloaded, and miss links that render late. The
		// wait gets its own cap so one dead page cannot consume the
		// budget of every candidate after it, and is recomputed against
		// the deadline since navigation may have eaten the earlier
		// remaining value.
		waitBounded := page.Context(ctx).Timeout(min(time.Until(deadline), listingSelectorWait))
		if _, err := waitBounded.Element(selectorProductLink); err != nil {
			lastErr = NewErrBlocked(navURL)
			continue
		}

		links, err := bounded.Elements(selectorProductLink)
		if err != nil || len(links) == 0 {
			lastErr = NewErrBlocked(navURL)
			continue
		}

		if len(links) > maxListingLinks {
			links = links[:maxListingLinks]
		}

		best := e.bestLink(candidate, links)
		if best == "" {
			lastErr = ErrNoResults
			continue
		}

		return best, candidate, nil
	}

	if lastErr != nil {
		return "", "", lastErr
	}
	return "", "", ErrNoResults
}

// bestLink scores every collected link's text against candidate and
// returns the highest scorer's product ID, provided it clears the
// tiered acceptance threshold (30 preferred, 10 permitted as a
// low-confidence fallback). The Slow Path cannot cheaply re-verify a
// listing match the way the Fast Path's detail page re-check can, so
// the threshold here is stricter than Fast Path's "above zero" bar.
func (e *RodExecutor) bestLink(candidate string, links rod.Elements) (productID string) {
	type scored struct {
		id    string
		score float64
	}
	var results []scored

	for _, el := range links {
		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		m := pcodeRe.FindStringSubmatch(*href)
		if m == nil {
			continue
		}
		text, _ := el.Text()
		results = append(results, scored{id: m[1], score: e.scorer.Score(candidate, text)})
	}

	if len(results) == 0 {
		return ""
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	top := results[0]

	if top.score >= acceptThresholdPreferred {
		return top.id
	}
	if top.score >= acceptThresholdLow {
		applog.WithComponentAndFields(component, applog.Fields{
			"candidate": candidate,
			"score":     top.score,
		}).Warn("accepted low-confidence listing match")
		return top.id
	}
	return ""
}

// detailPhase acquires a fresh page (the search phase's page was already
// released), applies the rate-limit sleep, navigates to the product
// detail page, and extracts mall offers after re-verifying the title.
func (e *RodExecutor) detailPhase(ctx context.Context, normalizedQuery, matchedCandidate, productID string, deadline time.Time) (fastpath.Result, error) {
	acquireTimeout := time.Until(deadline) + e.cfg.Browser.AcquireCushion
	if err := e.browser.acquire(ctx, acquireTimeout); err != nil {
		return fastpath.Result{}, err
	}
	defer e.browser.release()

	e.rateLimitSleep(ctx)

	page, err := e.browser.newPage(ctx)
	if err != nil {
		return fastpath.Result{}, err
	}
	defer page.Close()

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return fastpath.Result{}, NewErrTimeout(ctx.Err())
	}

	if err := e.waitNavSlot(ctx, deadline); err != nil {
		return fastpath.Result{}, err
	}
	remaining = time.Until(deadline)
	if remaining <= 0 {
		return fastpath.Result{}, NewErrTimeout(ctx.Err())
	}

	detailURL := e.site.DetailURL(productID, normalizedQuery)
	bounded := page.Context(ctx).Timeout(remaining)

	if err := bounded.Navigate(detailURL); err != nil {
		return fastpath.Result{}, NewErrTimeout(err)
	}

	if _, err := bounded.Element(selectorLowPriceArea); err != nil {
		if discontinued, _ := bounded.Elements(selectorDiscontinued); len(discontinued) > 0 {
			return fastpath.Result{}, ErrNoResults
		}
		return fastpath.Result{}, NewErrBlocked(detailURL)
	}

	titleEl, err := bounded.Element(selectorProductTitle)
	if err != nil {
		return fastpath.Result{}, NewErrParseError(detailURL, "product title not found")
	}
	productName, _ := titleEl.Text()
	productName = strings.TrimSpace(productName)

	verifyAgainst := matchedCandidate
	if verifyAgainst == "" {
		verifyAgainst = normalizedQuery
	}
	if e.scorer.Score(verifyAgainst, productName) < reverifyThreshold {
		return fastpath.Result{}, NewErrParseError(detailURL, "title re-verification below threshold, likely redirect")
	}

	offers := e.extractMallOffers(bounded, detailURL)
	if len(offers) == 0 {
		return fastpath.Result{}, NewErrParseError(detailURL, "no mall offers parsed")
	}

	best := offers[0]
	return fastpath.Result{
		ProductID:    productID,
		ProductURL:   detailURL,
		Price:        best.Price,
		ProductName:  productName,
		Mall:         best.Mall,
		FreeShipping: best.FreeShipping,
		Offers:       offers,
	}, nil
}

// wireMallOffer is the row shape the in-page collection script emits.
type wireMallOffer struct {
	Mall         string `json:"mall"`
	PriceText    string `json:"price_text"`
	FreeShipping bool   `json:"free_shipping"`
	DeliveryText string `json:"delivery_text"`
	Href         string `json:"href"`
}

// extractMallOffers collects every mall row of the lowest-price block in
// a single Eval round trip instead of walking elements one CDP call at a
// time, then decodes the returned objects into typed offers. A row whose
// price fails to parse to a positive integer is dropped, not fatal.
func (e *RodExecutor) extractMallOffers(page *rod.Page, pageURL string) []fastpath.MallOffer {
	js := `(itemSel, max, nameSel, priceSel, freeSel, deliverySel) =>
		Array.from(document.querySelectorAll(itemSel)).slice(0, max).map(el => {
			const text = sel => { const n = el.querySelector(sel); return n ? n.innerText.trim() : ''; };
			const link = el.querySelector('a');
			return {
				mall: text(nameSel),
				price_text: text(priceSel),
				free_shipping: el.querySelector(freeSel) !== null,
				delivery_text: text(deliverySel),
				href: link ? (link.getAttribute('href') || '') : '',
			};
		})`

	obj, err := page.Eval(js, selectorMallItem, maxMallOffers,
		selectorMallName, selectorMallPrice, selectorFreeShipping, selectorDelivery)
	if err != nil {
		return nil
	}

	rows, err := maputil.Decode[[]wireMallOffer](obj.Value.Val())
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{
			"error": err,
		}).Warn("mall offer rows failed to decode")
		return nil
	}

	var offers []fastpath.MallOffer
	for _, row := range *rows {
		price, ok := fastpath.ParsePrice(row.PriceText)
		if !ok {
			continue
		}

		offerURL := pageURL
		if row.Href != "" {
			if resolved, err := fastpath.ResolveURL(pageURL, row.Href); err == nil {
				offerURL = resolved
			}
		}

		offers = append(offers, fastpath.MallOffer{
			Mall:         strutil.NormalizeSpace(row.Mall),
			Price:        price,
			FreeShipping: row.FreeShipping,
			DeliveryText: strutil.NormalizeSpace(row.DeliveryText),
			URL:          offerURL,
		})
	}

	return offers
}

// waitNavSlot blocks until the shared navigation limiter admits one
// more upstream navigation, giving up at deadline so a queued wait can
// never outlive the search that issued it.
func (e *RodExecutor) waitNavSlot(ctx context.Context, deadline time.Time) error {
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	if err := e.limiter.Wait(waitCtx); err != nil {
		return NewErrTimeout(err)
	}
	return nil
}

// rateLimitSleep waits a randomized duration in [RateLimitMin,
// RateLimitMax], applied only between Slow Path detail fetches to avoid
// tripping upstream rate limiting -- never applied to the Fast Path,
// which has no such requirement.
func (e *RodExecutor) rateLimitSleep(ctx context.Context) {
	span := e.cfg.RateLimitMax - e.cfg.RateLimitMin
	delay := e.cfg.RateLimitMin
	if span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

package fastpath

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/darkkaiser/pricesearch/internal/engine/fastpath/htmlscrape"
	"github.com/darkkaiser/pricesearch/internal/engine/query"
	"github.com/darkkaiser/pricesearch/internal/engine/scorer"
)

// MallOffer is one ranked seller offer surfaced on a product's detail
// page: mall name, price, shipping terms, and the URL to buy from it.
type MallOffer struct {
	Mall         string
	Price        int
	FreeShipping bool
	DeliveryText string
	URL          string
}

// Result is a product the Fast Path resolved and validated, ready to
// become a cache entry.
type Result struct {
	ProductID    string
	ProductURL   string
	Price        int
	ProductName  string
	Mall         string
	FreeShipping bool
	Offers       []MallOffer
}

// Config tunes the content-validity heuristic and per-request timeout
// cap. Zero values fall back to the reference defaults.
type Config struct {
	MinHTMLLength      int
	TrustLargeHTMLSize int
	PerRequestTimeout  time.Duration
}

// DefaultConfig returns the reference defaults: a 5000-byte minimum
// trusted length, a 50000-byte unconditional-trust threshold, and a
// 4-second per-request cap.
func DefaultConfig() Config {
	return Config{
		MinHTMLLength:      defaultMinHTMLLength,
		TrustLargeHTMLSize: defaultTrustLargeHTMLSize,
		PerRequestTimeout:  4 * time.Second,
	}
}

// Executor is the Fast Path: HTTP fetch, HTML parse, and candidate
// ranking, bounded entirely by the timeout its caller grants it.
type Executor struct {
	scraper htmlscrape.Scraper
	scorer  scorer.Scorer
	site    Site

	minHTMLLength      int
	trustLargeHTMLSize int
	perRequestTimeout  time.Duration
}

// New builds an Executor. scraper and sc are required.
func New(scraper htmlscrape.Scraper, sc scorer.Scorer, site Site, cfg Config) *Executor {
	if cfg.MinHTMLLength <= 0 {
		cfg.MinHTMLLength = defaultMinHTMLLength
	}
	if cfg.TrustLargeHTMLSize <= 0 {
		cfg.TrustLargeHTMLSize = defaultTrustLargeHTMLSize
	}
	if cfg.PerRequestTimeout <= 0 {
		cfg.PerRequestTimeout = 4 * time.Second
	}

	return &Executor{
		scraper:            scraper,
		scorer:             sc,
		site:               site,
		minHTMLLength:      cfg.MinHTMLLength,
		trustLargeHTMLSize: cfg.TrustLargeHTMLSize,
		perRequestTimeout:  cfg.PerRequestTimeout,
	}
}

// Execute runs the search-then-detail algorithm against q within
// timeout, splitting it 60% search / 40% detail per the design's
// phase-budget split.
func (e *Executor) Execute(ctx context.Context, q query.Query, timeout time.Duration) (Result, error) {
	start := time.Now()
	searchBudget := (timeout * 60) / 100
	detailBudget := timeout - searchBudget

	searchDeadline := start.Add(searchBudget)
	overallDeadline := start.Add(timeout)

	products, _, err := e.searchPhase(ctx, q.Candidates, searchDeadline)
	if err != nil {
		return Result{}, err
	}

	detailDeadline := overallDeadline
	if remaining := time.Until(overallDeadline); remaining > detailBudget {
		detailDeadline = time.Now().Add(detailBudget)
	}

	return e.detailPhase(ctx, q.Normalized, products, detailDeadline)
}

// requestContext derives a per-request context bounded by both the
// executor's configured per-request cap and whatever of the current
// phase deadline remains, so one slow candidate can never consume an
// entire phase's budget.
func (e *Executor) requestContext(ctx context.Context, phaseDeadline time.Time) (context.Context, context.CancelFunc) {
	remaining := time.Until(phaseDeadline)
	timeout := e.perRequestTimeout
	if remaining < timeout {
		timeout = remaining
	}
	if timeout < 0 {
		timeout = 0
	}
	return context.WithTimeout(ctx, timeout)
}

// fetchSearchPage fetches and parses a listing page.
func (e *Executor) fetchSearchPage(ctx context.Context, candidate string) (*goquery.Document, string, error) {
	return e.fetchDocument(ctx, e.site.SearchURL(candidate))
}

// fetchDocument fetches target and returns both the parsed document
// (for selector-based extraction) and its rendered HTML. The rendered
// form is needed for the content-validity heuristic and the
// "no results" marker check, neither of which the htmlscrape layer
// exposes as raw response bytes -- it hands back an already-parsed
// *goquery.Document.
func (e *Executor) fetchDocument(ctx context.Context, target string) (*goquery.Document, string, error) {
	doc, err := e.scraper.FetchHTMLDocument(ctx, target, nil)
	if err != nil {
		return nil, "", err
	}

	raw, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		raw = doc.Text()
	}

	return doc, raw, nil
}

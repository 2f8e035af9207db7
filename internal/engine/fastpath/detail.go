package fastpath

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	selectorProductTitle     = ".prod_tit"
	selectorLowPriceArea     = "#lowPriceCompanyArea"
	selectorMallItem         = "#lowPriceCompanyArea .mall_item"
	selectorMallName         = ".mall_name"
	selectorMallPrice        = ".price"
	selectorMallFreeShipping = ".delivery.free"
	selectorMallDelivery     = ".delivery"
	selectorMallLink         = "a"

	// Fallback selectors for pages that render a single representative
	// lowest-price area instead of the ordered mall-price list.
	selectorRepArea     = ".lowest_area, .lowest_price"
	selectorRepPrice    = ".lowest_area .price_sect .num, .lowest_area .price_sect .price_num, .lowest_price .num"
	selectorRepMall     = ".lowest_area .mall_name, .lowest_price .mall_name"
	selectorRepMallLogo = ".lowest_area .mall_logo img, .lowest_price .mall_logo img"

	// repFallbackMall names the representative offer when the page
	// exposes no mall name at all.
	repFallbackMall = "다나와최저가"

	maxDetailAttempts = 4
	maxMallOffers     = 3
)

var priceDigitsRe = regexp.MustCompile(`[0-9]+`)

// ParsePrice extracts the leading integer from a scraped price text
// (thousands separators stripped), rejecting non-positive values.
// Shared with the Slow Path so both routes parse prices identically.
func ParsePrice(text string) (int, bool) {
	digits := priceDigitsRe.FindString(strings.ReplaceAll(text, ",", ""))
	price, err := strconv.Atoi(digits)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

// detailPhase fetches up to 4 deduplicated product IDs in ranked order
// and returns the first whose detail page parses into at least one
// surviving mall offer.
func (e *Executor) detailPhase(ctx context.Context, query string, products []candidateProduct, deadline time.Time) (Result, error) {
	seen := map[string]bool{}
	attempts := 0
	var lastErr error

	for _, p := range products {
		if attempts >= maxDetailAttempts {
			break
		}
		if seen[p.ProductID] {
			continue
		}
		seen[p.ProductID] = true
		attempts++

		if !time.Now().Before(deadline) {
			return Result{}, NewErrTimeout(context.DeadlineExceeded)
		}

		reqCtx, cancel := e.requestContext(ctx, deadline)
		result, err := e.fetchProductDetail(reqCtx, query, p)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	if lastErr != nil {
		return Result{}, lastErr
	}
	return Result{}, ErrNoResults
}

func (e *Executor) fetchProductDetail(ctx context.Context, query string, p candidateProduct) (Result, error) {
	detailURL := e.site.DetailURL(p.ProductID, query)

	doc, raw, err := e.fetchDocument(ctx, detailURL)
	if err != nil {
		return Result{}, NewErrProductFetchFailed(p.ProductID, err.Error())
	}

	titleSel := doc.Find(selectorProductTitle)
	// Either price layout counts as the product fingerprint: the ordered
	// mall-price list or the representative lowest-price area.
	hasPriceArea := doc.Find(selectorLowPriceArea).Length() > 0 ||
		doc.Find(selectorRepArea).Length() > 0
	hasFingerprint := titleSel.Length() > 0 && hasPriceArea

	if !contentValid(raw, hasFingerprint, e.minHTMLLength, e.trustLargeHTMLSize) {
		return Result{}, NewErrBlocked(detailURL)
	}
	if !hasFingerprint {
		return Result{}, NewErrParseError(detailURL, "product title or lowest-price area fingerprint missing")
	}

	productName := strings.TrimSpace(titleSel.First().Text())
	if isAccessory(query, productName) {
		return Result{}, NewErrParseError(detailURL, "filtered as accessory listing")
	}

	offers := extractMallOffers(doc, detailURL)
	if len(offers) == 0 {
		return Result{}, NewErrParseError(detailURL, "no mall offers parsed from lowest-price area")
	}

	best := offers[0]
	return Result{
		ProductID:    p.ProductID,
		ProductURL:   detailURL,
		Price:        best.Price,
		ProductName:  productName,
		Mall:         best.Mall,
		FreeShipping: best.FreeShipping,
		Offers:       offers,
	}, nil
}

// extractMallOffers parses up to 3 ranked mall offers from the lowest-
// price block. An offer is dropped, not fatal, if its price fails to
// parse to a positive integer -- the primary mall-price list is
// usually still usable even if one row is malformed.
func extractMallOffers(doc *goquery.Document, pageURL string) []MallOffer {
	var offers []MallOffer

	doc.Find(selectorMallItem).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxMallOffers {
			return false
		}

		mall := strings.TrimSpace(sel.Find(selectorMallName).First().Text())

		price, ok := ParsePrice(sel.Find(selectorMallPrice).First().Text())
		if !ok {
			return true
		}

		freeShipping := sel.Find(selectorMallFreeShipping).Length() > 0
		delivery := strings.TrimSpace(sel.Find(selectorMallDelivery).First().Text())

		offerURL := pageURL
		if href, ok := sel.Find(selectorMallLink).First().Attr("href"); ok && href != "" {
			if resolved, err := ResolveURL(pageURL, href); err == nil {
				offerURL = resolved
			}
		}

		offers = append(offers, MallOffer{
			Mall:         mall,
			Price:        price,
			FreeShipping: freeShipping,
			DeliveryText: delivery,
			URL:          offerURL,
		})
		return true
	})

	if len(offers) == 0 {
		if rep, ok := extractRepresentativeOffer(doc, pageURL); ok {
			offers = append(offers, rep)
		}
	}

	return offers
}

// extractRepresentativeOffer is the fallback path for detail pages that
// carry no ordered mall-price list: it reads the single representative
// lowest-price area instead, yielding one offer. ok is false when the
// area is absent or its price fails to parse to a positive integer.
func extractRepresentativeOffer(doc *goquery.Document, pageURL string) (MallOffer, bool) {
	price, ok := ParsePrice(doc.Find(selectorRepPrice).First().Text())
	if !ok {
		return MallOffer{}, false
	}

	mall := strings.TrimSpace(doc.Find(selectorRepMall).First().Text())
	if mall == "" {
		// Some layouts show the mall only as a logo image; its alt text
		// is the mall name.
		mall = strings.TrimSpace(doc.Find(selectorRepMallLogo).First().AttrOr("alt", ""))
	}
	if mall == "" {
		mall = repFallbackMall
	}

	return MallOffer{
		Mall:  mall,
		Price: price,
		URL:   pageURL,
	}, true
}

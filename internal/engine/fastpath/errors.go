package fastpath

import (
	"fmt"

	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
)

// ErrNoResults indicates the upstream confirmed an empty search: a
// "no results" marker was present in the listing response, or there
// was no candidate query to search at all. Per the
// documented fallback policy this is terminal: the Orchestrator does
// not retry it via the Slow Path.
var ErrNoResults = apperrors.New(apperrors.NotFound, "fast path: upstream confirmed no results")

// ErrNoViableCandidate indicates every candidate produced by the
// listing phase was disqualified by the Match Scorer (an exact-zero
// hard-disqualification, not merely a low score). Detail-page failures
// are reported with their own errors. Unlike ErrNoResults this is NOT a confirmed
// empty catalog -- a product existed, it just wasn't this product --
// so the Orchestrator's fallback policy treats it like a parse/timeout
// failure and retries via the Slow Path rather than treating it as
// terminal.
var ErrNoViableCandidate = apperrors.New(apperrors.ExecutionFailed, "fast path: candidates were found but none survived scoring or detail validation")

// productFetchError carries the product ID a search phase located,
// structured rather than embedded only in the message text, so the
// Orchestrator can recover it with ProductIDHint and hand it to the
// Slow Path as a skip-to-detail hint.
type productFetchError struct {
	productID string
	reason    string
}

func (e *productFetchError) Error() string {
	return fmt.Sprintf("fast path: product %s detail fetch failed: %s", e.productID, e.reason)
}

// NewErrProductFetchFailed reports that a candidate product ID was
// located during the search phase but its detail page could not be
// retrieved or parsed. reason is embedded for diagnostics; the product
// ID itself is meant to be propagated to the Slow Path as a hint to
// skip straight to the detail phase.
func NewErrProductFetchFailed(productID, reason string) error {
	return apperrors.Wrap(&productFetchError{productID: productID, reason: reason}, apperrors.ExecutionFailed, "fast path: product detail fetch failed")
}

// ProductIDHint recovers the product ID embedded in err, if err is (or
// wraps) one produced by NewErrProductFetchFailed. Used by the
// Orchestrator to hand the Slow Path a skip-to-detail hint instead of
// making it repeat a search phase the Fast Path already resolved.
func ProductIDHint(err error) (string, bool) {
	var pfe *productFetchError
	if apperrors.As(err, &pfe) {
		return pfe.productID, true
	}
	return "", false
}

// NewErrTimeout wraps a deadline encountered while candidates or
// phases remained unexplored.
func NewErrTimeout(err error) error {
	return apperrors.Wrap(err, apperrors.Timeout, "fast path: budget exhausted before a result was produced")
}

// NewErrBlocked reports that a response matched the content-validity
// heuristic's invalid branch -- either an explicit anti-bot
// interstitial or an untrusted short response lacking any fingerprint.
func NewErrBlocked(url string) error {
	return apperrors.Newf(apperrors.Unavailable, "fast path: blocked or invalid response from upstream (url: %s)", url)
}

// NewErrParseError reports a response that was reachable and passed
// the content-validity check but lacked the structural fingerprint the
// parser requires.
func NewErrParseError(url, reason string) error {
	return apperrors.Newf(apperrors.ParsingFailed, "fast path: unexpected page structure (url: %s): %s", url, reason)
}

package slowpath

import (
	"context"

	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
)

// ErrNoResults mirrors fastpath.ErrNoResults: the browser reached a
// listing or detail page and found no usable product, or less than
// detailMinRemaining was left for the detail phase. Terminal, like its
// Fast Path counterpart.
var ErrNoResults = apperrors.New(apperrors.NotFound, "slow path: no viable product found")

// ErrBusy indicates the browser concurrency semaphore could not be
// acquired before its own bounded wait elapsed. Per the resource
// discipline this counts as a fallback-worthy failure, not a confirmed
// empty search.
var ErrBusy = apperrors.New(apperrors.Unavailable, "slow path: browser concurrency limit reached")

// ErrDisabled is returned by the Disabled executor unconditionally. It
// carries the same NotFound classification as ErrNoResults so the
// Orchestrator's mapping treats a disabled deployment identically to an
// honest no-results outcome, per the documented deployment policy.
var ErrDisabled = apperrors.New(apperrors.NotFound, "slow path: disabled in this deployment")

// NewErrLaunchFailed wraps a browser launch/connect failure. Fatal for
// the Slow Path only -- the Fast Path is unaffected.
func NewErrLaunchFailed(err error) error {
	return apperrors.Wrap(err, apperrors.System, "slow path: browser launch failed")
}

// NewErrTimeout wraps a deadline encountered mid-navigation or mid-wait.
// The stage deadline can fire before the surrounding context does, so a
// nil cause is normalized to context.DeadlineExceeded rather than
// letting Wrap(nil, ...) collapse the whole error to nil.
func NewErrTimeout(err error) error {
	if err == nil {
		err = context.DeadlineExceeded
	}
	return apperrors.Wrap(err, apperrors.Timeout, "slow path: budget exhausted before a result was produced")
}

// NewErrBlocked reports a navigated page that never rendered the
// expected selector and also failed to show a recognizable product
// fingerprint -- most often an anti-bot challenge page.
func NewErrBlocked(url string) error {
	return apperrors.Newf(apperrors.Unavailable, "slow path: blocked or unrenderable page (url: %s)", url)
}

// NewErrParseError reports a page that rendered but did not yield the
// expected structure (discontinued listing, redirect to an unrelated
// page, re-verification failure).
func NewErrParseError(url, reason string) error {
	return apperrors.Newf(apperrors.ParsingFailed, "slow path: unexpected page structure (url: %s): %s", url, reason)
}

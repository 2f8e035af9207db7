// Package slowpath implements the Slow Path Executor: a headless-browser
// route through the upstream catalog for candidates the Fast Path
// could not resolve. It shares a single browser instance across
// searches and bounds simultaneous page lifetimes with a semaphore.
package slowpath

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserConfig controls the shared Chrome instance.
type BrowserConfig struct {
	// DebuggerURL, when set, connects to an already-running Chrome
	// instead of launching one.
	DebuggerURL string

	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	// NavigationTimeout is carried in the configuration but not read by
	// the executor: each page.Navigate call is bounded by the time left
	// before the search's deadline.
	NavigationTimeout time.Duration

	// Concurrency bounds simultaneous page lifetimes across all searches.
	Concurrency int

	// AcquireCushion is added to the time left before the search's
	// deadline to compute the semaphore's acquire timeout, so a queued
	// search may wait up to this long past its stage deadline for a page.
	AcquireCushion time.Duration
}

// DefaultBrowserConfig returns the reference defaults: headless,
// 1920x1080 viewport, 2 concurrent pages, a 2 s acquire cushion.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 5 * time.Second,
		Concurrency:       2,
		AcquireCushion:    2 * time.Second,
	}
}

// sharedBrowser owns the lazily-launched, process-wide Chrome connection
// and the semaphore bounding concurrent pages. It is never closed by an
// individual search; only the owning Engine's Close does that.
type sharedBrowser struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser

	sem chan struct{}
}

func newSharedBrowser(cfg BrowserConfig) *sharedBrowser {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &sharedBrowser{
		cfg: cfg,
		sem: make(chan struct{}, cfg.Concurrency),
	}
}

// ensure lazily launches or connects to Chrome, double-checked under the
// lock so concurrent first callers only pay the launch cost once.
func (b *sharedBrowser) ensure(ctx context.Context) (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if _, err := b.browser.Version(); err == nil {
			return b.browser, nil
		}
		_ = b.browser.Close()
		b.browser = nil
	}

	controlURL := b.cfg.DebuggerURL
	if controlURL == "" {
		launched, err := launcher.New().Headless(b.cfg.Headless).Launch()
		if err != nil {
			return nil, NewErrLaunchFailed(err)
		}
		controlURL = launched
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, NewErrLaunchFailed(err)
	}

	b.browser = browser
	return browser, nil
}

// acquire blocks until a page slot is free or timeout elapses. Acquiring
// never outlives the caller's context.
func (b *sharedBrowser) acquire(ctx context.Context, timeout time.Duration) error {
	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-acquireCtx.Done():
		return ErrBusy
	}
}

// release is idempotent-safe to call exactly once per successful acquire.
func (b *sharedBrowser) release() {
	<-b.sem
}

// newPage opens an incognito page so cookies/storage never leak across
// searches, applies the configured viewport, and intercepts the
// network to abort non-essential resource types.
func (b *sharedBrowser) newPage(ctx context.Context) (*rod.Page, error) {
	browser, err := b.ensure(ctx)
	if err != nil {
		return nil, err
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, NewErrLaunchFailed(fmt.Errorf("incognito context: %w", err))
	}

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, NewErrLaunchFailed(fmt.Errorf("open page: %w", err))
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             b.cfg.ViewportWidth,
		Height:            b.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		_ = page.Close()
		return nil, NewErrLaunchFailed(fmt.Errorf("set viewport: %w", err))
	}

	blockNonEssentialResources(page)

	return page, nil
}

// blockNonEssentialResources installs a request hijacker that fails
// image, font, stylesheet, and media fetches, cutting page-load latency
// on upstream pages this executor only ever reads text and links from.
func blockNonEssentialResources(page *rod.Page) {
	router := page.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		switch ctx.Request.Type() {
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeMedia:
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	go router.Run()
}

// Close tears down the shared browser. Safe to call once, at process
// shutdown; never called by an individual search.
func (b *sharedBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	b.browser = nil
	return err
}

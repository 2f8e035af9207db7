// Package orchestrator implements the pipeline controller: one call to
// Search runs a query through the cache, the Fast Path, and the Slow
// Path in strict order, turning whatever each stage returns into a
// single Status the caller can act on without inspecting error types
// itself. It is the sole boundary in the engine where an error becomes
// a status -- no stage's error is ever allowed to escape Search.
package orchestrator

import (
	"context"
	"time"

	"github.com/darkkaiser/pricesearch/internal/engine/breaker"
	"github.com/darkkaiser/pricesearch/internal/engine/budget"
	"github.com/darkkaiser/pricesearch/internal/engine/cache"
	"github.com/darkkaiser/pricesearch/internal/engine/fastpath"
	"github.com/darkkaiser/pricesearch/internal/engine/query"
	"github.com/darkkaiser/pricesearch/internal/engine/recorder"
	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

const component = "engine.orchestrator"

// Status is the terminal classification of one search, the only thing
// about a search's internals the caller needs to branch on.
type Status string

const (
	StatusCacheHit        Status = "cache_hit"
	StatusFastpathSuccess Status = "fastpath_success"
	StatusSlowpathSuccess Status = "slowpath_success"
	StatusNoResults       Status = "no_results"
	StatusTimeout         Status = "timeout"
	StatusParseError      Status = "parse_error"
	StatusBlocked         Status = "blocked"
	StatusBudgetExhausted Status = "budget_exhausted"
)

// Source reports which stage produced a successful Result.
type Source string

const (
	SourceCache    Source = "cache"
	SourceFastpath Source = "fastpath"
	SourceSlowpath Source = "slowpath"
)

// Result is the outcome of one Search call.
type Result struct {
	Status Status
	Source Source

	ProductURL   string
	Price        int
	ProductName  string
	Mall         string
	FreeShipping bool
	Offers       []fastpath.MallOffer

	ErrorMessage string
	Budget       budget.Report
}

// Searcher is satisfied by both the Fast Path and Slow Path executors:
// both take a query and a timeout and return the same result shape.
type Searcher interface {
	Execute(ctx context.Context, q query.Query, timeout time.Duration) (fastpath.Result, error)
}

// Config carries the values the Orchestrator itself needs beyond its
// dependencies: the per-search budget allocation and the cache's
// write-back TTLs.
type Config struct {
	Budget           budget.Config
	CachePositiveTTL time.Duration
	CacheNegativeTTL time.Duration
}

// DefaultConfig returns the reference allocation: budget.Default() plus
// a 6-hour positive TTL and a 60 s negative TTL.
func DefaultConfig() Config {
	return Config{
		Budget:           budget.Default(),
		CachePositiveTTL: 6 * time.Hour,
		CacheNegativeTTL: 60 * time.Second,
	}
}

// Orchestrator is stateless across invocations except for the shared
// dependencies it holds: the circuit breaker and the cache backend
// persist across searches, everything else (the Budget Manager) is
// created fresh per call.
type Orchestrator struct {
	cfg Config

	normalizer query.Strategy
	cacheAdpt  cache.Adapter
	breaker    *breaker.Breaker
	fastpath   Searcher
	slowpath   Searcher
	recorder   recorder.Recorder
}

// New builds an Orchestrator. All dependencies are required except
// rec, which defaults to recorder.Noop{} when nil.
func New(normalizer query.Strategy, cacheAdpt cache.Adapter, br *breaker.Breaker, fp, sp Searcher, rec recorder.Recorder, cfg Config) *Orchestrator {
	if rec == nil {
		rec = recorder.Noop{}
	}

	return &Orchestrator{
		cfg:        cfg,
		normalizer: normalizer,
		cacheAdpt:  cacheAdpt,
		breaker:    br,
		fastpath:   fp,
		slowpath:   sp,
		recorder:   rec,
	}
}

// Search runs one query through the full pipeline. It never returns an
// error: every failure mode is represented in the returned Result's
// Status.
func (o *Orchestrator) Search(ctx context.Context, raw string) Result {
	mgr := budget.New(o.cfg.Budget)
	mgr.Start()

	q := query.Query{Raw: raw, Normalized: o.normalizer.Normalize(raw), Candidates: o.normalizer.Candidates(raw)}
	if q.Empty() {
		return Result{Status: StatusNoResults, Budget: mgr.Report()}
	}

	if result, handled := o.searchCache(ctx, mgr, q); handled {
		return result
	}

	fastpathResult, fastpathHandled, productIDHint := o.searchFastpath(ctx, mgr, q)
	if fastpathHandled {
		return fastpathResult
	}

	return o.searchSlowpath(ctx, mgr, q, productIDHint)
}

// searchCache is Stage 1. handled is true whenever the caller should
// return result immediately without trying any further stage.
func (o *Orchestrator) searchCache(ctx context.Context, mgr *budget.Manager, q query.Query) (Result, bool) {
	entry, found, err := o.cacheAdpt.Get(ctx, q.Normalized)
	if err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"query": q.Normalized, "error": err.Error()}).Warn("cache read failed, treating as miss")
	} else if found && entry.Valid() {
		mgr.Checkpoint("cache_hit")
		return Result{
			Status:       StatusCacheHit,
			Source:       SourceCache,
			ProductURL:   entry.ProductURL,
			Price:        entry.Price,
			ProductName:  entry.ProductName,
			Mall:         entry.Mall,
			FreeShipping: entry.FreeShipping,
			Budget:       mgr.Report(),
		}, true
	}

	if msg, found, err := o.cacheAdpt.GetNegative(ctx, q.Normalized); err == nil && found {
		mgr.Checkpoint("negative_cache_hit")
		return Result{Status: StatusNoResults, ErrorMessage: msg, Budget: mgr.Report()}, true
	}

	mgr.Checkpoint("cache_miss")
	return Result{}, false
}

// searchFastpath is Stage 2. handled is true whenever the caller should
// return result without trying the Slow Path: either Fast Path
// succeeded, or it failed in a way the fallback policy classifies as
// terminal. productIDHint, when non-empty, is the fetch-failure-with-
// partial-progress handoff: a product ID the Fast Path located but
// could not fetch detail for, to be passed on to the Slow Path.
func (o *Orchestrator) searchFastpath(ctx context.Context, mgr *budget.Manager, q query.Query) (result Result, handled bool, productIDHint string) {
	if o.breaker.IsOpen() || !mgr.CanExecute(budget.StageFastpath) {
		return Result{}, false, ""
	}

	fpResult, err := o.fastpath.Execute(ctx, q, mgr.TimeoutFor(budget.StageFastpath))
	if err == nil && fpResult.ProductURL != "" && fpResult.Price > 0 {
		mgr.Checkpoint("fastpath_success")
		o.breaker.RecordSuccess()
		o.writeCache(ctx, q.Normalized, fpResult)
		return o.toSuccessResult(StatusFastpathSuccess, SourceFastpath, fpResult, mgr), true, ""
	}
	if err == nil {
		err = fastpath.NewErrParseError(q.Normalized, "result failed validation (empty URL or non-positive price)")
	}

	mgr.Checkpoint("fastpath_failed")

	if apperrors.Is(err, apperrors.NotFound) {
		// Confirmed empty search: terminal, per the documented fallback
		// policy. Negative-cache it so repeat queries within the TTL
		// never touch the upstream again.
		o.writeNegativeCache(ctx, q.Normalized, err.Error())
		o.recordFailure(ctx, q, err)
		return Result{Status: StatusNoResults, ErrorMessage: err.Error(), Budget: mgr.Report()}, true, ""
	}

	o.breaker.RecordFailure()

	hint, _ := fastpath.ProductIDHint(err)

	if !shouldFallbackToSlowpath(err) {
		o.recordFailure(ctx, q, err)
		return Result{Status: classifyStatus(err), ErrorMessage: err.Error(), Budget: mgr.Report()}, true, ""
	}

	return Result{}, false, hint
}

// searchSlowpath is Stage 3. productIDHint, when non-empty, is the
// fetch-failure-with-partial-progress handoff: a product ID the Fast
// Path located but could not fetch detail for.
func (o *Orchestrator) searchSlowpath(ctx context.Context, mgr *budget.Manager, q query.Query, productIDHint string) Result {
	if !mgr.CanExecute(budget.StageSlowpath) {
		return Result{Status: StatusBudgetExhausted, Budget: mgr.Report()}
	}

	q.ProductIDHint = productIDHint

	result, err := o.slowpath.Execute(ctx, q, mgr.TimeoutFor(budget.StageSlowpath))
	if err == nil && result.ProductURL != "" && result.Price > 0 {
		mgr.Checkpoint("slowpath_success")
		o.breaker.RecordSlowpathSuccess()
		o.writeCache(ctx, q.Normalized, result)
		return o.toSuccessResult(StatusSlowpathSuccess, SourceSlowpath, result, mgr)
	}
	if err == nil {
		err = fastpath.NewErrParseError(q.Normalized, "slow path result failed validation")
	}

	o.breaker.RecordSlowpathFailure()
	mgr.Checkpoint("slowpath_failed")

	status := classifyStatus(err)
	if status == StatusNoResults {
		o.writeNegativeCache(ctx, q.Normalized, err.Error())
	}
	o.recordFailure(ctx, q, err)

	return Result{Status: status, ErrorMessage: err.Error(), Budget: mgr.Report()}
}

func (o *Orchestrator) toSuccessResult(status Status, source Source, r fastpath.Result, mgr *budget.Manager) Result {
	return Result{
		Status:       status,
		Source:       source,
		ProductURL:   r.ProductURL,
		Price:        r.Price,
		ProductName:  r.ProductName,
		Mall:         r.Mall,
		FreeShipping: r.FreeShipping,
		Offers:       r.Offers,
		Budget:       mgr.Report(),
	}
}

// writeCache is best-effort: failures are logged, never raised, and
// never written when price <= 0 or the URL is empty.
func (o *Orchestrator) writeCache(ctx context.Context, key string, r fastpath.Result) {
	if r.Price <= 0 || r.ProductURL == "" {
		return
	}

	entry := cache.Entry{
		ProductURL:   r.ProductURL,
		Price:        r.Price,
		ProductName:  r.ProductName,
		Mall:         r.Mall,
		FreeShipping: r.FreeShipping,
		CachedAt:     time.Now(),
	}

	if err := o.cacheAdpt.Set(ctx, key, entry, o.cfg.CachePositiveTTL); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"query": key, "error": err.Error()}).Warn("cache write failed")
	}
}

func (o *Orchestrator) writeNegativeCache(ctx context.Context, key, message string) {
	if err := o.cacheAdpt.SetNegative(ctx, key, message, o.cfg.CacheNegativeTTL); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"query": key, "error": err.Error()}).Warn("negative cache write failed")
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, q query.Query, err error) {
	d := o.normalizer.Detect(q.Raw)
	o.recorder.RecordFailure(ctx, recorder.Failure{
		Original:     q.Raw,
		Normalized:   q.Normalized,
		Candidates:   q.Candidates,
		ErrorMessage: err.Error(),
		Category:     d.Category,
		Brand:        d.Brand,
		Model:        d.Model,
	})
}

// shouldFallbackToSlowpath implements the documented fallback policy:
// true for timeout, parse, blocked, and fast-path-specific execution
// failures (including a listing whose only candidates were
// score-disqualified); false for an explicitly-confirmed empty search,
// which is handled before this is ever consulted.
func shouldFallbackToSlowpath(err error) bool {
	return !apperrors.Is(err, apperrors.NotFound)
}

// classifyStatus maps a stage error to its terminal Status. Anything
// unrecognized falls back to StatusNoResults, matching the catch-all
// step in the reference algorithm.
func classifyStatus(err error) Status {
	switch apperrors.GetType(err) {
	case apperrors.NotFound:
		return StatusNoResults
	case apperrors.Timeout:
		return StatusTimeout
	case apperrors.Unavailable:
		return StatusBlocked
	case apperrors.ParsingFailed, apperrors.ExecutionFailed:
		return StatusParseError
	default:
		return StatusNoResults
	}
}

// Package engine assembles the pipeline's components -- query
// normalizer, scorer, budget manager configuration, circuit breaker,
// cache adapter, Fast Path and Slow Path executors, and the failure
// recorder -- into one Orchestrator, wired from an AppConfig at
// process start.
package engine

import (
	"io"
	"time"

	"github.com/darkkaiser/pricesearch/internal/config"
	"github.com/darkkaiser/pricesearch/internal/engine/breaker"
	"github.com/darkkaiser/pricesearch/internal/engine/budget"
	"github.com/darkkaiser/pricesearch/internal/engine/cache"
	"github.com/darkkaiser/pricesearch/internal/engine/cache/fileadapter"
	"github.com/darkkaiser/pricesearch/internal/engine/cache/redisadapter"
	"github.com/darkkaiser/pricesearch/internal/engine/fastpath"
	"github.com/darkkaiser/pricesearch/internal/engine/fastpath/htmlscrape"
	"github.com/darkkaiser/pricesearch/internal/engine/orchestrator"
	"github.com/darkkaiser/pricesearch/internal/engine/query"
	"github.com/darkkaiser/pricesearch/internal/engine/recorder"
	"github.com/darkkaiser/pricesearch/internal/engine/scorer"
	"github.com/darkkaiser/pricesearch/internal/engine/slowpath"
	"github.com/darkkaiser/pricesearch/internal/httpfetch"
	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
)

// Engine owns every long-lived resource the Orchestrator depends on and
// is responsible for releasing them on shutdown.
type Engine struct {
	Orchestrator *orchestrator.Orchestrator

	cacheAdapter cache.Adapter
	slowExecutor io.Closer
}

// New builds a fully-wired Engine from cfg. The caller must call
// Close when the engine is no longer needed, to release the cache
// backend's connections and (if configured) the shared browser
// process.
func New(cfg *config.AppConfig) (*Engine, error) {
	site := fastpath.Site{
		BaseURL:    cfg.Site.BaseURL,
		SearchPath: cfg.Site.SearchPath,
		DetailPath: cfg.Site.DetailPath,
	}

	sc := scorer.New()
	normalizer := query.New(nil)

	cacheAdapter, err := buildCacheAdapter(cfg)
	if err != nil {
		return nil, err
	}

	fetcher := httpfetch.New(3, 2*time.Second, 0)
	scraper := htmlscrape.New(fetcher)

	fastExecutor := fastpath.New(scraper, sc, site, fastpath.Config{
		MinHTMLLength:      cfg.FastpathMinHTMLLength,
		TrustLargeHTMLSize: cfg.FastpathTrustLargeHTMLSize,
		PerRequestTimeout:  cfg.FastpathTimeout(),
	})

	slowExecutor, closer := buildSlowpathExecutor(cfg, sc, site)

	br := breaker.New(breaker.Config{
		FailThreshold: cfg.FastpathFailThreshold,
		OpenDuration:  cfg.FastpathOpenDuration(),
	})

	rec := recorder.Multi{recorder.LoggingRecorder{}, mustFileRecorder(cfg.RecorderFilePath)}

	orch := orchestrator.New(normalizer, cacheAdapter, br, fastExecutor, slowExecutor, rec, orchestrator.Config{
		Budget: budget.Config{
			Total:           cfg.TotalBudget(),
			CacheTimeout:    cfg.CacheTimeout(),
			FastpathTimeout: cfg.FastpathTimeout(),
			SlowpathTimeout: cfg.SlowpathTimeout(),
			MinRemaining:    500 * time.Millisecond,
		},
		CachePositiveTTL: cfg.CacheTTLPositive(),
		CacheNegativeTTL: cfg.CacheTTLNegative(),
	})

	return &Engine{
		Orchestrator: orch,
		cacheAdapter: cacheAdapter,
		slowExecutor: closer,
	}, nil
}

// Close releases the cache backend and, if a real browser backend is in
// use, the shared Chrome process. Safe to call once at process
// shutdown.
func (e *Engine) Close() error {
	var firstErr error
	if e.slowExecutor != nil {
		if err := e.slowExecutor.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.cacheAdapter.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func buildCacheAdapter(cfg *config.AppConfig) (cache.Adapter, error) {
	var backend cache.Adapter

	switch cfg.Cache.Backend {
	case "redis":
		backend = redisadapter.NewFromAddr(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	case "file":
		store, err := fileadapter.New(cfg.Cache.FileDir)
		if err != nil {
			return nil, err
		}
		backend = store
	default:
		return nil, apperrors.Newf(apperrors.InvalidInput, "engine: unknown cache backend %q", cfg.Cache.Backend)
	}

	return cache.NewCoalescing(backend), nil
}

// buildSlowpathExecutor returns the configured Slow Path and, if it
// owns a browser process, something to Close at shutdown.
func buildSlowpathExecutor(cfg *config.AppConfig, sc scorer.Scorer, site fastpath.Site) (orchestrator.Searcher, io.Closer) {
	if cfg.SlowpathBackend == "disabled" {
		return slowpath.Disabled{}, nil
	}

	browserCfg := slowpath.DefaultBrowserConfig()
	browserCfg.Concurrency = cfg.BrowserConcurrency

	executor := slowpath.New(sc, site, slowpath.Config{
		Browser:      browserCfg,
		RateLimitMin: cfg.RateLimitMin(),
		RateLimitMax: cfg.RateLimitMax(),
	})

	return executor, executor
}

func mustFileRecorder(path string) recorder.Recorder {
	r, err := recorder.NewFileRecorder(path)
	if err != nil {
		return recorder.Noop{}
	}
	return r
}

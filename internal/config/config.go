// Package config loads and validates the engine's external configuration
// surface: per-stage timeouts, cache TTLs, breaker sensitivity, browser
// concurrency, and upstream URL shapes. Values are sourced from a JSON
// file with environment-variable overrides layered over struct defaults
// via koanf providers.
package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/darkkaiser/pricesearch/internal/pkg/errors"
	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

const component = "config"

// AppConfigFileName is the default config file name, resolved relative
// to the process's working directory.
const AppConfigFileName = "pricesearch.json"

// envPrefix is stripped from every PRICESEARCH_-prefixed environment
// variable before it is matched against a koanf key.
const envPrefix = "PRICESEARCH_"

var validate = validator.New()

// AppConfig is the engine's full configuration surface. Every
// field has a default taken from Default(), loaded before any file or
// environment override and before validation runs.
type AppConfig struct {
	TotalBudgetS     float64 `koanf:"total_budget_s" validate:"gt=0"`
	CacheTimeoutS    float64 `koanf:"cache_timeout_s" validate:"gt=0"`
	FastpathTimeoutS float64 `koanf:"fastpath_timeout_s" validate:"gt=0"`
	SlowpathTimeoutS float64 `koanf:"slowpath_timeout_s" validate:"gt=0"`

	CacheTTLPositiveS int `koanf:"cache_ttl_positive_s" validate:"gt=0"`
	CacheTTLNegativeS int `koanf:"cache_ttl_negative_s" validate:"gt=0"`

	FastpathFailThreshold int     `koanf:"fastpath_fail_threshold" validate:"gt=0"`
	FastpathOpenDurationS float64 `koanf:"fastpath_open_duration_s" validate:"gt=0"`

	BrowserConcurrency int `koanf:"browser_concurrency" validate:"gt=0"`

	// SlowpathBackend selects the Slow Path implementation. "playwright"
	// is the external contract's name for "a real headless-browser
	// backend"; this engine's browser backend is implemented with
	// go-rod rather than Playwright, but answers to the same config
	// token so deployments don't have to change their config files.
	// "disabled" selects the no-op executor.
	SlowpathBackend string `koanf:"slowpath_backend" validate:"oneof=playwright disabled"`

	FastpathMinHTMLLength      int `koanf:"fastpath_min_html_length" validate:"gt=0"`
	FastpathTrustLargeHTMLSize int `koanf:"fastpath_trust_large_html_size" validate:"gt=0"`

	RateLimitMinS float64 `koanf:"rate_limit_min_s" validate:"gt=0"`
	RateLimitMaxS float64 `koanf:"rate_limit_max_s" validate:"gtefield=RateLimitMinS"`

	Site  SiteConfig  `koanf:"site"`
	Cache CacheConfig `koanf:"cache"`

	RecorderFilePath string `koanf:"recorder_file_path"`
}

// SiteConfig models the upstream URL contract as data instead
// of a hard-coded constant, so the engine can point at a different
// catalog host without a code change.
type SiteConfig struct {
	BaseURL    string `koanf:"base_url" validate:"required,url"`
	SearchPath string `koanf:"search_path" validate:"required"`
	DetailPath string `koanf:"detail_path" validate:"required"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	// Backend is "redis" or "file".
	Backend string `koanf:"backend" validate:"oneof=redis file"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	FileDir string `koanf:"file_dir"`
}

// Load reads filename (falling back to AppConfigFileName when empty),
// layers PRICESEARCH_-prefixed environment variables on top, applies
// defaults to anything left unset, and validates the result.
//
// A missing config file is not an error: defaults plus environment
// overrides alone are a valid configuration, matching a container
// deployment that configures entirely through its environment.
func Load(filename string) (*AppConfig, error) {
	if filename == "" {
		filename = AppConfigFileName
	}

	k := koanf.New(".")

	cfg := Default()
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "config: failed to seed defaults")
	}

	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		applog.WithComponentAndFields(component, applog.Fields{"file": filename, "error": err.Error()}).
			Warn("config file not loaded, continuing with defaults and environment overrides")
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyTransform), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "config: failed to load environment overrides")
	}

	var out AppConfig
	if err := k.Unmarshal("", &out); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, "config: failed to decode configuration")
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}

	return &out, nil
}

// envKeyTransform turns PRICESEARCH_FASTPATH_TIMEOUT_S into
// fastpath_timeout_s, matching the koanf tags above.
func envKeyTransform(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.ToLower(s)
}

// Default returns the built-in default configuration.
func Default() *AppConfig {
	return &AppConfig{
		TotalBudgetS:     12.0,
		CacheTimeoutS:    0.5,
		FastpathTimeoutS: 4.0,
		SlowpathTimeoutS: 6.5,

		CacheTTLPositiveS: 21600,
		CacheTTLNegativeS: 60,

		FastpathFailThreshold: 5,
		FastpathOpenDurationS: 60.0,

		BrowserConcurrency: 2,
		SlowpathBackend:    "playwright",

		FastpathMinHTMLLength:      5000,
		FastpathTrustLargeHTMLSize: 50000,

		RateLimitMinS: 0.5,
		RateLimitMaxS: 1.5,

		Site: SiteConfig{
			BaseURL:    "https://search.example-catalog.test",
			SearchPath: "/search",
			DetailPath: "/info/",
		},
		Cache: CacheConfig{
			Backend: "file",
			FileDir: "data/cache",
		},
		RecorderFilePath: "data/recorder/failures.jsonl",
	}
}

// Validate checks field-level constraints and a handful of
// cross-field invariants the struct tags can't express on their own.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "config: validation failed")
	}

	stageSum := c.CacheTimeoutS + c.FastpathTimeoutS + c.SlowpathTimeoutS
	if stageSum > c.TotalBudgetS {
		return apperrors.Newf(apperrors.InvalidInput,
			"config: sum of per-stage timeouts (%.2fs) exceeds total_budget_s (%.2fs)", stageSum, c.TotalBudgetS)
	}

	if c.Cache.Backend == "redis" && strings.TrimSpace(c.Cache.RedisAddr) == "" {
		return apperrors.New(apperrors.InvalidInput, "config: cache.redis_addr is required when cache.backend is \"redis\"")
	}

	return nil
}

// Durations below convert the float-seconds config fields into the
// time.Duration values every engine component actually takes.

func (c *AppConfig) TotalBudget() time.Duration     { return secondsToDuration(c.TotalBudgetS) }
func (c *AppConfig) CacheTimeout() time.Duration     { return secondsToDuration(c.CacheTimeoutS) }
func (c *AppConfig) FastpathTimeout() time.Duration  { return secondsToDuration(c.FastpathTimeoutS) }
func (c *AppConfig) SlowpathTimeout() time.Duration  { return secondsToDuration(c.SlowpathTimeoutS) }
func (c *AppConfig) CacheTTLPositive() time.Duration { return time.Duration(c.CacheTTLPositiveS) * time.Second }
func (c *AppConfig) CacheTTLNegative() time.Duration { return time.Duration(c.CacheTTLNegativeS) * time.Second }
func (c *AppConfig) FastpathOpenDuration() time.Duration {
	return secondsToDuration(c.FastpathOpenDurationS)
}
func (c *AppConfig) RateLimitMin() time.Duration { return secondsToDuration(c.RateLimitMinS) }
func (c *AppConfig) RateLimitMax() time.Duration { return secondsToDuration(c.RateLimitMaxS) }

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Package breaker implements the Circuit Breaker: it protects the Fast
// Path against a misbehaving upstream by opening after a run of
// consecutive failures and auto-closing after a cooldown.
package breaker

import (
	"sync"
	"time"
)

// Config controls breaker sensitivity. Default mirrors the reference:
// 5 consecutive failures trip it open for 60 seconds.
type Config struct {
	FailThreshold int
	OpenDuration  time.Duration
}

// Default returns the reference configuration.
func Default() Config {
	return Config{FailThreshold: 5, OpenDuration: 60 * time.Second}
}

// Metrics is an immutable snapshot of the breaker's hit/miss counters.
// It is always returned by value so callers can never observe (or
// mutate) live state through it.
type Metrics struct {
	FastpathHits     uint64
	FastpathMisses   uint64
	SlowpathHits     uint64
	SlowpathFailures uint64
}

// Breaker is process-wide shared: one instance per upstream, guarding
// every concurrent search's Fast Path attempt. All state transitions
// are atomic with respect to each other under mu.
type Breaker struct {
	cfg Config

	mu              sync.Mutex
	failCount       int
	openUntil       time.Time
	hasOpenDeadline bool
	metrics         Metrics
}

// New creates a closed Breaker configured by cfg.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg}
}

// IsOpen reports whether the Fast Path should currently be skipped. If
// the open deadline has passed, the breaker auto-resets fail_count and
// open_until as a side effect, matching the reference's auto-close
// semantics, and returns false.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.hasOpenDeadline {
		return false
	}

	if time.Now().Before(b.openUntil) {
		return true
	}

	// Cooldown elapsed: auto-close.
	b.failCount = 0
	b.hasOpenDeadline = false
	return false
}

// RecordSuccess resets the failure streak and closes the breaker
// immediately, then increments the fast-path hit counter.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failCount = 0
	b.hasOpenDeadline = false
	b.metrics.FastpathHits++
}

// RecordFailure increments the failure streak and the fast-path miss
// counter; once the streak reaches FailThreshold, the breaker opens for
// OpenDuration.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failCount++
	b.metrics.FastpathMisses++

	if b.failCount >= b.cfg.FailThreshold {
		b.openUntil = time.Now().Add(b.cfg.OpenDuration)
		b.hasOpenDeadline = true
	}
}

// RecordSlowpathSuccess and RecordSlowpathFailure track the Slow Path's
// own counters. The Slow Path never gates on the breaker itself (the
// breaker only guards the Fast Path) but its outcomes still feed the
// shared metrics snapshot for observability.
func (b *Breaker) RecordSlowpathSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.SlowpathHits++
}

func (b *Breaker) RecordSlowpathFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.metrics.SlowpathFailures++
}

// Metrics returns a point-in-time snapshot.
func (b *Breaker) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.metrics
}

// Package recorder implements the Result Recorder sink: a place failed
// searches are reported to for offline triage, decoupled from the
// Orchestrator's own control flow. A Recorder must never surface an
// error the Orchestrator has to handle -- failures here are logged and
// swallowed.
package recorder

import (
	"context"
)

// Failure describes one search the Orchestrator could not resolve. All
// string fields are already derived by the Normalizer's auxiliary
// extractors; the Recorder only persists them.
type Failure struct {
	Original     string
	Normalized   string
	Candidates   []string
	ErrorMessage string
	Category     string
	Brand        string
	Model        string
}

// Recorder is consumed by the Orchestrator on failures only; it never
// sees a success.
type Recorder interface {
	RecordFailure(ctx context.Context, f Failure)
}

// Multi fans a single failure out to every configured Recorder. The
// recorders are called one after another on the caller's goroutine and
// Multi adds no recover boundary, so a slow recorder delays the ones
// after it and a panicking one stops them.
type Multi []Recorder

var _ Recorder = Multi(nil)

// RecordFailure calls RecordFailure on every wrapped Recorder in order.
func (m Multi) RecordFailure(ctx context.Context, f Failure) {
	for _, r := range m {
		if r == nil {
			continue
		}
		r.RecordFailure(ctx, f)
	}
}

// Noop discards every failure. Useful as a safe default when no sink is
// configured.
type Noop struct{}

var _ Recorder = Noop{}

// RecordFailure does nothing.
func (Noop) RecordFailure(context.Context, Failure) {}

package recorder

import (
	"context"

	applog "github.com/darkkaiser/pricesearch/pkg/log"
)

const component = "engine.recorder"

// LoggingRecorder writes every failure to the shared structured logger.
// It is the always-on baseline sink; other sinks (file, external
// triage system) can be layered on top of it via Multi.
type LoggingRecorder struct{}

var _ Recorder = LoggingRecorder{}

// RecordFailure logs f at warning level with every field attached.
func (LoggingRecorder) RecordFailure(_ context.Context, f Failure) {
	applog.WithComponentAndFields(component, applog.Fields{
		"original":   f.Original,
		"normalized": f.Normalized,
		"candidates": f.Candidates,
		"category":   f.Category,
		"brand":      f.Brand,
		"model":      f.Model,
	}).Warn(f.ErrorMessage)
}

package slowpath

import (
	"context"
	"time"

	"github.com/darkkaiser/pricesearch/internal/engine/fastpath"
	"github.com/darkkaiser/pricesearch/internal/engine/query"
)

// Disabled is a drop-in Executor for memory-constrained deployments
// where the ~250 MB resident browser process is prohibitive. It never
// launches a browser and imposes no runtime cost beyond the call itself.
type Disabled struct{}

var _ Executor = Disabled{}

// Execute always fails with ErrDisabled. The Orchestrator's fallback
// policy treats this identically to an honest no-results outcome.
func (Disabled) Execute(context.Context, query.Query, time.Duration) (fastpath.Result, error) {
	return fastpath.Result{}, ErrDisabled
}

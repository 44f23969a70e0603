// Package reaper periodically prunes expired endpoint bookkeeping. It is a
// backstop: read-time expiry checks in the service layer already make expired
// endpoints behave as not-found between sweeps.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidfries/hooky/internal/logging"
	"github.com/davidfries/hooky/internal/metrics"
	"github.com/davidfries/hooky/internal/store"
	"github.com/davidfries/hooky/internal/stream"
)

// DefaultInterval is the sweep cadence when none is configured. It must stay
// shorter than the smallest TTL users rely on for prompt cleanup.
const DefaultInterval = time.Minute

// Reaper sweeps the store on a fixed interval and releases live subscriptions
// for endpoints that were pruned.
type Reaper struct {
	store    store.Store
	fanout   stream.Fanout
	logger   *logging.Logger
	interval time.Duration
}

// New creates a reaper; a non-positive interval falls back to DefaultInterval.
func New(st store.Store, fanout stream.Fanout, interval time.Duration, logger *logging.Logger) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{store: st, fanout: fanout, logger: logger, interval: interval}
}

// Run sweeps until the context is cancelled. It blocks; callers run it in its
// own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	removed, err := r.store.Sweep(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "sweep failed", logging.Error(err))
	}
	for _, id := range removed {
		r.fanout.DropEndpoint(id)
	}
	if len(removed) > 0 {
		metrics.EndpointsReaped.Add(float64(len(removed)))
		r.logger.InfoContext(ctx, "reaped expired endpoints",
			slog.Int("count", len(removed)))
	}
}

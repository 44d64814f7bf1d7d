package core

// scheduler.go runs background maintenance for the query cache. The janitor
// is long-running and stops when its context is cancelled.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultJanitorInterval is used when StartCacheJanitor gets a zero interval.
const DefaultJanitorInterval = time.Minute

// sweeper is implemented by caches that can drop expired entries.
type sweeper interface {
	Sweep() int
}

// StartCacheJanitor sweeps expired cache entries every interval until ctx
// is cancelled. It returns immediately when the cache has nothing to sweep.
func (s *Service) StartCacheJanitor(ctx context.Context, interval time.Duration) {
	sw, ok := s.cache.(sweeper)
	if !ok {
		return
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}

	slog.Info("cache janitor started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("cache janitor stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if n := sw.Sweep(); n > 0 {
				slog.Info("swept expired cache entries",
					"entries_removed", n,
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}

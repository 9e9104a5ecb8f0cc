package managers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper is a store that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}

// StartCacheSweeper periodically evicts expired entries from s until ctx is done.
func StartCacheSweeper(ctx context.Context, wg *sync.WaitGroup, s Sweeper, interval time.Duration, logger *zap.SugaredLogger) {
	if interval <= 0 {
		interval = time.Minute
	}
	wg.Add(1)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					logger.Debugf("evicted %d expired cache entries", n)
				}
			}
		}
	}()
}

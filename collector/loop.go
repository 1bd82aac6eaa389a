package collector

import (
	"context"
	"time"
)

// Run refreshes the metrics, then sleeps for interval, until ctx is done.
// A cycle always runs to completion before the next one starts.
func (c *JellyfinCollector) Run(ctx context.Context, interval time.Duration) {
	c.Logger.WithField("interval", interval).Info("Starting collection loop")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Collection loop stopped")
			return
		case <-timer.C:
		}

		c.Refresh(ctx)
		timer.Reset(interval)
	}
}

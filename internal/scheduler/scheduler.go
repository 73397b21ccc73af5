package scheduler

import (
	"context"
	"time"

	"jobsync-engine/internal/logger"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every tick until ctx is done.
// Runs never overlap; a tick that fires during a run is skipped.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log := logger.FromContext(ctx).With("component", "scheduler", "task", name)

	run := func() {
		if err := task(ctx); err != nil {
			log.Error("task failed", "err", err)
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}

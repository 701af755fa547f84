// Package worker runs periodic maintenance tasks.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Task is one named maintenance pass. It returns how many records it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Cleanup periodically sweeps expired state out of the stores. Expiry is
// always enforced on read; the sweep only reclaims memory, so a failed pass
// is logged and retried on the next tick.
type Cleanup struct {
	interval time.Duration
	tasks    []Task
	logger   *slog.Logger
}

func NewCleanup(interval time.Duration, logger *slog.Logger, tasks ...Task) *Cleanup {
	return &Cleanup{interval: interval, tasks: tasks, logger: logger}
}

// Run executes the sweep loop until the context is cancelled.
func (c *Cleanup) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Cleanup) sweep(ctx context.Context) {
	for _, task := range c.tasks {
		removed, err := task.Run(ctx)
		if err != nil {
			if c.logger != nil {
				c.logger.WarnContext(ctx, "cleanup task failed",
					"task", task.Name, "error", err)
			}
			continue
		}
		if removed > 0 && c.logger != nil {
			c.logger.InfoContext(ctx, "cleanup task completed",
				"task", task.Name, "removed", removed)
		}
	}
}

// Package scheduler runs periodic background tasks inside the server process.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// Task is one unit of periodic work.
type Task func(ctx context.Context) error

// Every runs task each interval until ctx is done. A failing or panicking run
// is logged and the next tick proceeds as usual. Every blocks; start it in its
// own goroutine. A non-positive interval returns immediately.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	if interval <= 0 {
		slog.Info("periodic task disabled", "task", name)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("periodic task started", "task", name, "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("periodic task stopped", "task", name)
			return
		case <-ticker.C:
			runOnce(ctx, name, task)
		}
	}
}

func runOnce(ctx context.Context, name string, task Task) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("periodic task panicked", "task", name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	start := time.Now()
	if err := task(ctx); err != nil {
		slog.Error("periodic task failed", "task", name, "error", err)
		return
	}
	slog.Debug("periodic task finished", "task", name, "duration_ms", time.Since(start).Milliseconds())
}

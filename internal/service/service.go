// Package service is the single writer of application status and job
// application counts. Handlers and the expiry sweeper call into it; it
// validates against the lifecycle graphs, persists through the store, then
// invalidates caches and sends notifications once the write has committed.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/jobmarket/internal/apperr"
	"github.com/kiranshivaraju/jobmarket/internal/cache"
	"github.com/kiranshivaraju/jobmarket/internal/notify"
	"github.com/kiranshivaraju/jobmarket/internal/store"
	"golang.org/x/sync/errgroup"
)

// Option configures a service.
type Option func(*options)

type options struct {
	now             func() time.Time
	expiryBatchSize int
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		now:             func() time.Time { return time.Now().UTC() },
		expiryBatchSize: 500,
		logger:          slog.Default(),
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithExpiryBatchSize caps how many stale applications one ExpireStale call selects.
func WithExpiryBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.expiryBatchSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// fromStore maps a store failure onto the caller-facing taxonomy.
func fromStore(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, store.ErrDuplicateKey):
		return apperr.Conflict("%s already exists", what)
	default:
		return apperr.Internal(err, what)
	}
}

// sideEffects is the post-commit work of one mutation.
type sideEffects struct {
	deps  cache.Dependents
	sends []func(ctx context.Context) error
}

// runSideEffects invalidates caches and hands notifications to the
// dispatcher concurrently. Senders do no lookups of their own; the server's
// dispatcher only enqueues. It runs after the write has committed and cannot
// fail the operation; the caller's cancellation does not abort it.
func runSideEffects(ctx context.Context, logger *slog.Logger, memo *cache.Memo, n notify.Dispatcher, fx sideEffects) {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.Go(func() error {
		// Memo logs its own failures; stale entries expire with the TTL.
		_ = memo.Invalidate(ctx, fx.deps)
		return nil
	})
	if n != nil {
		for _, send := range fx.sends {
			if send == nil {
				continue
			}
			g.Go(func() error {
				if err := send(ctx); err != nil {
					logger.WarnContext(ctx, "notification not sent", "error", err)
				}
				return nil
			})
		}
	}
	_ = g.Wait()
}

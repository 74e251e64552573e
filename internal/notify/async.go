package notify

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrQueueFull is returned by AsyncDispatcher.Notify when the event was dropped.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("notification dispatcher closed")

// AsyncDispatcher queues events and delivers them on background workers
// through next. Notify never blocks on delivery.
type AsyncDispatcher struct {
	next    Dispatcher
	queue   chan Event
	limiter *rate.Limiter
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// AsyncOptions tunes an AsyncDispatcher.
type AsyncOptions struct {
	Workers    int
	QueueSize  int
	RatePerSec float64       // <= 0 means unlimited
	Timeout    time.Duration // per delivery; defaults to 5s
}

// NewAsyncDispatcher starts the workers. Call Close to drain and stop them.
func NewAsyncDispatcher(next Dispatcher, opts AsyncOptions) *AsyncDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := int(opts.RatePerSec)
	if burst < 1 {
		burst = 1
	}

	d := &AsyncDispatcher{
		next:    next,
		queue:   make(chan Event, opts.QueueSize),
		limiter: rate.NewLimiter(limit, burst),
		timeout: opts.Timeout,
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Notify enqueues event. A full queue drops the event with a warning.
func (d *AsyncDispatcher) Notify(ctx context.Context, event Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		slog.WarnContext(ctx, "notification dropped, queue full",
			"kind", event.Kind,
			"application_id", event.ApplicationID,
		)
		return ErrQueueFull
	}
}

// Close stops accepting events, delivers what is queued and waits for the
// workers, or until ctx is done.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *AsyncDispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("notification delivery panicked",
				"panic", r,
				"kind", event.Kind,
				"application_id", event.ApplicationID,
				"stack", string(debug.Stack()),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		slog.Warn("notification rate limit wait failed", "kind", event.Kind, "error", err)
		return
	}

	if err := d.next.Notify(ctx, event); err != nil {
		slog.Warn("notification delivery failed",
			"kind", event.Kind,
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}

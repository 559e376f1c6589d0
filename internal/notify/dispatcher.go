package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const queueSize = 256

// Dispatcher decouples the engine's transactions from event delivery: Emit
// enqueues without blocking, a single worker delivers with bounded retries,
// and anything still failing is logged and dropped.
type Dispatcher struct {
	mu     sync.RWMutex
	sink   Sink
	logger *slog.Logger
	queue  chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(sink Sink, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sink:   sink,
		logger: logger,
		queue:  make(chan Event, queueSize),
	}
}

// Start begins the delivery worker.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-d.queue:
				d.deliver(ctx, ev)
			}
		}
	}()
}

// Stop shuts the worker down. Queued events are dropped.
func (d *Dispatcher) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Emit enqueues the event. When the queue is full the event is dropped, at
// debug level; the core never blocks on the notification collaborator.
func (d *Dispatcher) Emit(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.logger.Debug("notify queue full, dropping event", "kind", ev.Kind, "id", ev.ID)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(d.sink.Deliver(ctx, ev))
	})
	if err != nil {
		d.logger.Warn("event delivery failed", "kind", ev.Kind, "id", ev.ID, "error", err)
	}
}

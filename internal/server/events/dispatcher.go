package events

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/logging"
)

const defaultPublishTimeout = 5 * time.Second

// Counter is the subset of a Prometheus counter the dispatcher needs.
type Counter interface {
	Inc()
}

type nopCounter struct{}

func (nopCounter) Inc() {}

// Dispatcher decouples callers from a Publisher with a bounded queue and a
// single worker. Dispatch never blocks: when the queue is full the event is
// dropped, logged and counted. Publisher errors are logged only.
type Dispatcher struct {
	pub     Publisher
	logger  logging.Logger
	queue   chan ObjectCreated
	timeout time.Duration

	dropped   Counter
	published Counter
	failed    Counter

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCounters attaches counters for dropped, published and failed events.
func WithCounters(dropped, published, failed Counter) DispatcherOption {
	return func(d *Dispatcher) {
		if dropped != nil {
			d.dropped = dropped
		}
		if published != nil {
			d.published = published
		}
		if failed != nil {
			d.failed = failed
		}
	}
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// NewDispatcher starts the worker. Close must be called to stop it.
func NewDispatcher(pub Publisher, size int, logger logging.Logger, opts ...DispatcherOption) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{
		pub:       pub,
		logger:    logger.With("module", "events"),
		queue:     make(chan ObjectCreated, size),
		timeout:   defaultPublishTimeout,
		dropped:   nopCounter{},
		published: nopCounter{},
		failed:    nopCounter{},
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	go d.run()
	return d
}

// Dispatch enqueues evt and reports whether it was accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, evt ObjectCreated) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Inc()
		d.logger.Warn(ctx, "event dropped after shutdown", "object_id", evt.ObjectID)
		return false
	}

	select {
	case d.queue <- evt:
		return true
	default:
		d.dropped.Inc()
		d.logger.Warn(ctx, "event queue full, dropping event", "object_id", evt.ObjectID)
		return false
	}
}

// Close stops accepting events, publishes what is queued and waits for
// the worker to exit.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.queue {
		d.publish(evt)
	}
}

func (d *Dispatcher) publish(evt ObjectCreated) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.pub.PublishObjectCreated(ctx, evt); err != nil {
		d.failed.Inc()
		d.logger.Warn(ctx, "failed to publish object created event", "object_id", evt.ObjectID, "error", err)
		return
	}
	d.published.Inc()
}

// Package telemetry forwards operational events off the request path.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

const DefaultBuffer = 256

// Sink is where dispatched events end up; the NATS queue in production.
type Sink interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// Dispatcher is a one-way event channel. Publish never blocks: when the
// buffer is full the event is dropped. Sink errors are logged and swallowed.
type Dispatcher struct {
	sink    Sink
	events  chan domain.Event
	onDrop  func()
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Option func(*Dispatcher)

// WithDropHook is called once per dropped event.
func WithDropHook(fn func()) Option {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

// WithSendTimeout bounds each sink call.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

func NewDispatcher(sink Sink, buffer int, opts ...Option) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	d := &Dispatcher{
		sink:    sink,
		events:  make(chan domain.Event, buffer),
		onDrop:  func() {},
		timeout: 2 * time.Second,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Publish enqueues event. The request context is not carried over: events
// must outlive the request that produced them.
func (d *Dispatcher) Publish(_ context.Context, event domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.onDrop()
		return
	}
	select {
	case d.events <- event:
	default:
		d.onDrop()
		slog.Warn("telemetry_dropped", "event_type", event.Type)
	}
}

// Run forwards events until Close is called and the buffer is drained.
func (d *Dispatcher) Run() {
	defer close(d.done)
	for event := range d.events {
		d.forward(event)
	}
}

// Close stops accepting events and waits for Run to drain the buffer or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) forward(event domain.Event) {
	if d.sink == nil {
		slog.Info("telemetry_event", "event_type", event.Type, "severity", event.Severity, "source", event.Source)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sink.PublishEvent(ctx, event); err != nil {
		slog.Warn("telemetry_publish_failed", "event_type", event.Type, "error", err)
	}
}

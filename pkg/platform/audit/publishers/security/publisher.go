// Package security provides a non-blocking audit publisher for security events.
//
// Emission never blocks the request path: events land in a bounded ring
// buffer and a background flusher persists them in batches. Under sustained
// store outage the oldest events are dropped and counted, on the principle
// that a slow security log must never slow an auth decision.
//
// Use for: auth_failed, session_revoked, emergency_bypass_denied.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "haven/pkg/platform/audit"
)

const (
	defaultCapacity      = 10000
	defaultFlushInterval = time.Second
	defaultBatchSize     = 100
)

// Publisher buffers security events and flushes them to the store in the
// background.
type Publisher struct {
	store   audit.Store
	buffer  *RingBuffer
	logger  *slog.Logger
	metrics *Metrics

	flushInterval time.Duration
	batchSize     int

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for flush error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithCapacity sets the ring buffer capacity.
func WithCapacity(n int) Option {
	return func(p *Publisher) { p.buffer = NewRingBuffer(n) }
}

// WithFlushInterval sets how often buffered events are flushed.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// New creates a security publisher and starts its background flusher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewRingBuffer(defaultCapacity),
		flushInterval: defaultFlushInterval,
		batchSize:     defaultBatchSize,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.run()
	return p
}

// Emit enqueues a security event. It never blocks and never fails the caller;
// when the buffer is full the oldest event is dropped to make room.
func (p *Publisher) Emit(event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}

	p.buffer.Enqueue(event)

	if p.metrics != nil {
		p.metrics.IncEnqueued()
		p.metrics.SetBufferLen(p.buffer.Len())
	}
}

// Close flushes remaining events and stops the background goroutine.
func (p *Publisher) Close() error {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
	return nil
}

func (p *Publisher) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.flush()
		case <-p.stop:
			// Final drain: keep flushing while progress is being made. A
			// store that is down at shutdown loses the buffered tail; the
			// dropped counter records how much.
			for p.buffer.Len() > 0 {
				if p.flush() == 0 {
					break
				}
			}
			return
		}
	}
}

// flush persists one batch and reports how many events landed. Events that
// fail to persist are re-enqueued once; if the buffer has since filled, the
// ring's drop-oldest policy applies.
func (p *Publisher) flush() int {
	batch := p.buffer.DequeueBatch(p.batchSize)
	if len(batch) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	persisted := 0
	for i, event := range batch {
		if err := p.store.Append(ctx, event.ToEvent()); err != nil {
			if p.logger != nil {
				p.logger.Error("security audit flush failed",
					"action", event.Action,
					"remaining", len(batch)-i,
					"error", err,
				)
			}
			if p.metrics != nil {
				p.metrics.IncPersistFailures()
			}
			// Put the unpersisted tail back for the next tick.
			for _, e := range batch[i:] {
				p.buffer.Enqueue(e)
			}
			return persisted
		}
		persisted++
		if p.metrics != nil {
			p.metrics.IncPersisted()
		}
	}

	if p.metrics != nil {
		p.metrics.SetBufferLen(p.buffer.Len())
		p.metrics.SetDropped(p.buffer.Dropped())
	}
	return persisted
}

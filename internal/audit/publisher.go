package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sink accepts audit events for append-only persistence.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher fans audit events out to its sinks. It is append-only and uses
// sinks for persistence so tests can swap them easily.
type Publisher struct {
	sinks  []Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
	async  bool
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sinks []Sink, opts ...PublisherOption) *Publisher {
	p := &Publisher{sinks: sinks}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		p.append(context.Background(), event)
	}
}

func (p *Publisher) append(ctx context.Context, event Event) {
	for _, sink := range p.sinks {
		if err := sink.Append(ctx, event); err != nil {
			if p.logger != nil {
				p.logger.Error("failed to persist audit event",
					"error", err,
					"event_type", event.EventType,
					"event_id", event.EventID,
				)
			}
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if p.async && p.events != nil {
		close(p.events)
		p.wg.Wait()
	}
}

// Emit queues or persists one event. Missing ids and timestamps are filled in
// here so callers construct events from domain facts only.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.async {
		// Non-blocking send; drop event if buffer is full to avoid blocking hot path
		select {
		case p.events <- event:
			return nil
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"event_type", event.EventType,
					"event_id", event.EventID,
				)
			}
			return nil
		}
	}
	p.append(ctx, event)
	return nil
}

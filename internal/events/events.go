// Package events publishes domain events to Redis channels, Kafka topics or
// the log.
package events

import (
	"context"
	"errors"
	"log/slog"

	"estate/internal/observability"
)

// ActivityRecorded is published after an activity audit entry is stored.
const ActivityRecorded = "activity.recorded"

// Publisher sends an event payload. partitionKey groups related events so
// ordered sinks keep them in sequence.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
	Close() error
}

// LogPublisher writes events to the logger. It is the sink used when no
// broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	logger := p.Logger
	if logger == nil {
		logger = observability.GlobalLogger.Logger
	}
	logger.DebugContext(ctx, "event published",
		slog.String("event", eventType),
		slog.String("key", partitionKey),
		slog.Int("bytes", len(payload)),
	)
	observability.EventsPublished.WithLabelValues("log", "ok").Inc()
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// Multi fans one event out to several publishers. Every sink is attempted;
// the errors are joined.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, eventType, payload, partitionKey); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Gate forwards an event only when allow returns true for it.
type Gate struct {
	Next  Publisher
	Allow func(eventType, partitionKey string) bool
}

func (g *Gate) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	if g.Allow != nil && !g.Allow(eventType, partitionKey) {
		observability.EventsPublished.WithLabelValues("gate", "skipped").Inc()
		return nil
	}
	return g.Next.Publish(ctx, eventType, payload, partitionKey)
}

func (g *Gate) Close() error { return g.Next.Close() }

func record(sink string, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
	}
	observability.EventsPublished.WithLabelValues(sink, result).Inc()
	return err
}

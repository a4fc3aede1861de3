package events

import (
	"context"
	"fmt"
	"time"

	"estate/internal/observability"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
)

// KafkaPublisher writes events to Kafka, one topic per event type unless
// remapped.
type KafkaPublisher struct {
	writer       *kafka.Writer
	topicByEvent map[string]string
}

func NewKafkaPublisher(brokers []string, topicByEvent map[string]string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		topicByEvent: topicByEvent,
	}, nil
}

// Topic resolves the topic eventType is written to.
func (p *KafkaPublisher) Topic(eventType string) string {
	if mapped, ok := p.topicByEvent[eventType]; ok && mapped != "" {
		return mapped
	}
	return eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	topic := p.Topic(eventType)
	span, ctx := observability.StartClientSpan(ctx, "kafka", "produce")
	span.AddAttributes(attribute.String("messaging.destination", topic))
	defer span.End()

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(partitionKey),
		Value: payload,
		Time:  time.Now().UTC(),
	})
	span.SetError(err)
	return record("kafka", err)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

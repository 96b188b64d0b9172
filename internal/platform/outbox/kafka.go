package outbox

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers one outbox event to the broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Key()),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		},
		Time: e.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Topic() string {
	return p.writer.Topic
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

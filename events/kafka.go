package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

type Kafka struct {
	writer *kafka.Writer
}

// NewKafka builds a writer keyed by user id. The writer connects lazily, so
// an unreachable broker only surfaces on Publish.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("events.kafka.brokers and events.kafka.topic must be set")
	}
	return &Kafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}}, nil
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	value, err := e.Encode()
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Time:  e.At,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", e.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

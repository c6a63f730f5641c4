// Package events publishes stored predictions to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Skufu/healthpredict/internal/store"
)

type Publisher interface {
	Publish(ctx context.Context, p store.Prediction) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, store.Prediction) error { return nil }
func (Nop) Close() error                                    { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka writes one JSON message per prediction, keyed by model.
type Kafka struct {
	topic  string
	writer messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	return newKafka(topic, &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 2 * time.Second,
	})
}

func newKafka(topic string, w messageWriter) *Kafka {
	return &Kafka{topic: topic, writer: w}
}

func (k *Kafka) Publish(ctx context.Context, p store.Prediction) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode prediction %s: %w", p.ID, err)
	}
	msg := kafkago.Message{
		Key:   []byte(p.Model),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(p.Kind)},
			{Key: "severity", Value: []byte(p.Severity.Tier())},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}

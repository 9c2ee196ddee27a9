package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events to one topic keyed by aggregate id, so events for
// the same record stay ordered.
type Kafka struct {
	w messageWriter
}

// NewKafka creates a synchronous writer for topic that waits for all
// in-sync replicas.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{w: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
	}}
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(e.AggregateID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "event-id", Value: []byte(e.ID)},
		},
		Time: e.OccurredAt,
	}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: kafka publish %s: %w", e.Type, err)
	}
	return nil
}

// Close implements Publisher.
func (k *Kafka) Close() error {
	return k.w.Close()
}

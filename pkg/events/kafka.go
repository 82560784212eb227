// Package events publishes room events to Kafka for downstream
// consumers (analytics, moderation tooling). Publishing is a
// side-channel: room state never depends on it.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/collab-playlist-system/internal/session"
)

// KafkaPublisher writes session events to a single topic, keyed by room
// code so one room's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	return &KafkaPublisher{writer: writer}
}

// Publish implements session.EventSink.
func (p *KafkaPublisher) Publish(ctx context.Context, event session.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Room),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.New().String())},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

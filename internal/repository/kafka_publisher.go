package repository

import (
	"context"
	"fmt"

	"opinionpointer/internal/domain/models"
	domrepo "opinionpointer/internal/domain/repository"
	pkgkafka "opinionpointer/pkg/kafka"
)

// KafkaEventPublisher implements EventPublisher for Kafka. Events are keyed
// by channel name so per-channel ordering is preserved.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) domrepo.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishCollection(ctx context.Context, ev *models.CollectionEvent) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	return p.producer.Publish(ctx, p.topic, []byte(ev.ChannelName), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopEventPublisher discards events. Used when Kafka is disabled in config.
type NopEventPublisher struct{}

func (NopEventPublisher) PublishCollection(context.Context, *models.CollectionEvent) error {
	return nil
}

func (NopEventPublisher) Close() error { return nil }

package repository

import (
	"context"

	"Aegis/internal/domain/models"
	drepo "Aegis/internal/domain/repository"
)

// producer is satisfied by *pkg/kafka.Producer.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaDecisionPublisher emits one JSON DecisionEvent per cycle, keyed by
// symbol so a symbol's events stay ordered.
type KafkaDecisionPublisher struct {
	producer producer
	topic    string
}

func NewKafkaDecisionPublisher(p producer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: p, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, ev models.DecisionEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaDecisionPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ drepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)

package repository

import (
	"context"

	"LinkSight/internal/domain/models"
	drepo "LinkSight/internal/domain/repository"
	pkgkafka "LinkSight/pkg/kafka"
)

// KafkaAuditSink publishes prediction events to the audit topic, keyed by
// model tag so per-model ordering is preserved.
type KafkaAuditSink struct {
	producer *pkgkafka.Producer
}

// NewKafkaAuditSink creates a Kafka audit sink.
func NewKafkaAuditSink(producer *pkgkafka.Producer) drepo.AuditSink {
	return &KafkaAuditSink{producer: producer}
}

func (s *KafkaAuditSink) Write(ctx context.Context, e *models.PredictionEvent) error {
	return s.producer.Publish(ctx, []byte(e.ModelTag), e)
}

func (s *KafkaAuditSink) WriteBatch(ctx context.Context, events []*models.PredictionEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(events))
	for i, e := range events {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(e.ModelTag),
			Value: e,
		}
	}
	return s.producer.PublishBatch(ctx, msgs)
}

func (s *KafkaAuditSink) Close() error {
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

package repository

import (
	"context"
	"strconv"

	"TrendTracker/internal/domain/models"
	drepo "TrendTracker/internal/domain/repository"
	pkgkafka "TrendTracker/pkg/kafka"
)

var _ drepo.EventPublisher = (*KafkaEventPublisher)(nil)

// KafkaEventPublisher emits AlertTriggered events keyed by alert id.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishAlertTriggered(ctx context.Context, ev *models.AlertTriggered) error {
	return p.producer.Publish(ctx, p.topic, []byte(strconv.FormatInt(ev.AlertID, 10)), ev)
}

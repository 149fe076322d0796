package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka. Пустой topic
// включает маршрутизацию по типу агрегата: движения остатков уходят в
// TopicStockEvents, всё остальное — в TopicSaleEvents.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if p.topic != "" {
		return p.topic
	}
	if event.AggregateType == "product" {
		return TopicStockEvents
	}
	return TopicSaleEvents
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event), key, envelope)
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)

package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicSaleEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "sale",
		AggregateID:   "sale-123",
		EventType:     "SaleCompleted",
		Payload:       []byte(`{"total_minor":2100}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicSaleEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: "sale",
		AggregateID:   "sale-234",
		EventType:     "SaleRefunded",
		Payload:       []byte(`{"amount_minor":500}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicSaleEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}

func TestOutboxPublisher_TopicRouting(t *testing.T) {
	t.Parallel()

	routing := &OutboxTopicPublisher{}

	saleEvent := domain.OutboxMessage{AggregateType: "sale", AggregateID: "sale-1"}
	if got := routing.topicFor(saleEvent); got != TopicSaleEvents {
		t.Fatalf("expected sale event to route to %s, got %s", TopicSaleEvents, got)
	}

	stockEvent := domain.OutboxMessage{AggregateType: "product", AggregateID: "prod-1"}
	if got := routing.topicFor(stockEvent); got != TopicStockEvents {
		t.Fatalf("expected stock event to route to %s, got %s", TopicStockEvents, got)
	}

	pinned := &OutboxTopicPublisher{topic: TopicDeadLetterQueue}
	if got := pinned.topicFor(stockEvent); got != TopicDeadLetterQueue {
		t.Fatalf("expected pinned topic %s, got %s", TopicDeadLetterQueue, got)
	}
}

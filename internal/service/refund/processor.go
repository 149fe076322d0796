package refund

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/metrics"
)

const (
	maxRetries = 3
	baseDelay  = 10 * time.Millisecond
)

// Processor применяет возвраты к проведённым чекам. Конкурентные возвраты
// по одному чеку сериализуются optimistic locking'ом: конфликт версии
// приводит к перечитыванию чека и повторной проверке предусловий, поэтому
// два одновременных частичных возврата не могут вместе превысить total.
type Processor struct {
	sales    domain.SaleRepository
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	clock    domain.Clock
	logger   *log.Entry
	metrics  *metrics.POSMetrics
}

// NewProcessor создаёт рабочий экземпляр RefundProcessor.
func NewProcessor(
	sales domain.SaleRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	clock domain.Clock,
	logger *log.Entry,
) *Processor {
	if logger == nil {
		logger = log.WithField("component", "refund")
	}
	return &Processor{
		sales:    sales,
		outbox:   outbox,
		timeline: timeline,
		clock:    clock,
		logger:   logger,
		metrics:  metrics.NewPOSMetrics(),
	}
}

// NewProcessorWithoutMetrics создаёт процессор без метрик (для тестов).
func NewProcessorWithoutMetrics(
	sales domain.SaleRepository,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	clock domain.Clock,
	logger *log.Entry,
) *Processor {
	p := NewProcessor(sales, outbox, timeline, clock, logger)
	p.metrics = nil
	return p
}

// Refund применяет возврат amountMinor к чеку saleID. Нарушение любого
// предусловия не меняет состояние. Возврат не восстанавливает остатки
// товаров: restock — отдельная явная операция ledger'а на стороне
// вызывающего.
func (p *Processor) Refund(saleID string, amountMinor int64, reason, actorID string) (domain.Sale, error) {
	logger := p.logger.WithFields(log.Fields{
		"sale_id":      saleID,
		"amount_minor": amountMinor,
	})

	if actorID == "" {
		p.metrics.RecordRefundFailed("validation")
		return domain.Sale{}, domain.ErrRefundActorRequired
	}
	if amountMinor <= 0 {
		p.metrics.RecordRefundFailed("validation")
		return domain.Sale{}, domain.ErrRefundAmountInvalid
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		sale, err := p.sales.Get(saleID)
		if err != nil {
			p.metrics.RecordRefundFailed("not_found")
			logger.WithError(err).Warn("sale not found for refund")
			return domain.Sale{}, err
		}

		// Предусловия перечитываются на каждой попытке: конкурентный
		// возврат мог уменьшить доступный остаток.
		if sale.Status != domain.SaleStatusCompleted {
			p.metrics.RecordRefundFailed("invalid_state")
			logger.WithField("status", sale.Status).Warn("refund rejected for non-completed sale")
			return domain.Sale{}, fmt.Errorf("sale %s: %w", sale.SaleNumber, domain.ErrSaleNotRefundable)
		}
		if amountMinor > sale.RefundableMinor() {
			p.metrics.RecordRefundFailed("exceeds_balance")
			logger.WithFields(log.Fields{
				"refundable_minor": sale.RefundableMinor(),
			}).Warn("refund exceeds remaining balance")
			return domain.Sale{}, fmt.Errorf("sale %s: %w", sale.SaleNumber, domain.ErrRefundExceedsBalance)
		}

		sale.RefundedMinor += amountMinor
		sale.RefundedBy = actorID
		sale.RefundReason = reason
		sale.RefundedAt = p.clock.Now().UTC()
		sale.UpdatedAt = sale.RefundedAt
		if sale.RefundedMinor >= sale.TotalMinor {
			sale.Status = domain.SaleStatusRefunded
		}

		saveErr := p.sales.Save(sale)
		if saveErr == nil {
			sale.Version++
			p.metrics.RecordRefundProcessed()
			logger.WithFields(log.Fields{
				"refunded_minor": sale.RefundedMinor,
				"status":         sale.Status,
			}).Info("refund applied")

			p.appendTimeline(sale.ID, reason)
			p.emitEvent(&sale, amountMinor, reason, actorID)
			return sale, nil
		}

		if domain.IsVersionConflict(saveErr) && attempt < maxRetries-1 {
			logger.WithFields(log.Fields{
				"attempt": attempt + 1,
				"version": sale.Version,
			}).Warn("version conflict on refund, retrying")

			// Exponential backoff перед перечитыванием.
			time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
			continue
		}

		p.metrics.RecordRefundFailed("persistence")
		logger.WithError(saveErr).Error("failed to persist refund")
		return domain.Sale{}, saveErr
	}

	p.metrics.RecordRefundFailed("persistence")
	return domain.Sale{}, domain.ErrSaleVersionConflict
}

func (p *Processor) appendTimeline(saleID, reason string) {
	if p.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		SaleID:   saleID,
		Type:     domain.TimelineSaleRefunded,
		Reason:   reason,
		Occurred: p.clock.Now().UTC(),
	}
	if err := p.timeline.Append(event); err != nil {
		p.logger.WithError(err).WithField("sale_id", saleID).Warn("append timeline event failed")
		return
	}
	p.metrics.RecordTimelineEvent()
}

func (p *Processor) emitEvent(sale *domain.Sale, amountMinor int64, reason, actorID string) {
	if p.outbox == nil {
		return
	}

	payload := map[string]interface{}{
		"sale_id":        sale.ID,
		"sale_number":    sale.SaleNumber,
		"amount_minor":   amountMinor,
		"refunded_minor": sale.RefundedMinor,
		"status":         string(sale.Status),
		"actor_id":       actorID,
	}
	if reason != "" {
		payload["reason"] = reason
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("sale_id", sale.ID).Error("marshal refund event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     "SaleRefunded",
		Payload:       data,
	}
	if _, err := p.outbox.Enqueue(msg); err != nil {
		p.logger.WithError(err).WithField("sale_id", sale.ID).Error("enqueue refund event failed")
		return
	}
	p.metrics.RecordOutboxEvent()
}

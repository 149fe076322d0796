package stock

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/metrics"
)

// Ledger — единственная точка мутации остатков товара. Все операции
// делегируются атомарным примитивам ProductRepository, поэтому два
// конкурентных вызова не могут пройти по одному и тому же устаревшему
// значению остатка.
type Ledger struct {
	products domain.ProductRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.POSMetrics
}

// NewLedger создаёт рабочий экземпляр StockLedger.
func NewLedger(products domain.ProductRepository, timeline domain.TimelineRepository, logger *log.Entry) *Ledger {
	if logger == nil {
		logger = log.WithField("component", "stock-ledger")
	}
	return &Ledger{
		products: products,
		timeline: timeline,
		logger:   logger,
		metrics:  metrics.NewPOSMetrics(),
	}
}

// NewLedgerWithoutMetrics создаёт StockLedger без метрик (для тестов).
func NewLedgerWithoutMetrics(products domain.ProductRepository, timeline domain.TimelineRepository, logger *log.Entry) *Ledger {
	ledger := NewLedger(products, timeline, logger)
	ledger.metrics = nil
	return ledger
}

// WithOutbox включает публикацию движений остатков через transactional
// outbox. Без него корректировки остаются только в аудит-журнале.
func (l *Ledger) WithOutbox(outbox domain.OutboxRepository) *Ledger {
	l.outbox = outbox
	return l
}

// Reserve атомарно списывает qty единиц товара под чек. Возвращает
// InsufficientStockError, если остатка не хватает; состояние при этом
// не меняется.
func (l *Ledger) Reserve(productID string, qty int32) (domain.Product, error) {
	if qty < 1 {
		return domain.Product{}, domain.ErrItemQtyInvalid
	}

	product, err := l.products.DecrementStockGuarded(productID, qty)
	if err != nil {
		if domain.IsInsufficientStock(err) {
			l.metrics.RecordStockReservation("insufficient")
			l.logger.WithError(err).WithField("product_id", productID).Warn("stock reservation rejected")
		}
		return domain.Product{}, err
	}

	l.metrics.RecordStockReservation("reserved")
	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"sku":        product.SKU,
		"qty":        qty,
		"remaining":  product.Stock.Current,
	}).Debug("stock reserved")

	return product, nil
}

// Compensate безусловно возвращает qty единиц на остаток. Используется
// только для отката ранее успешного Reserve в неудавшемся чекауте.
func (l *Ledger) Compensate(productID string, qty int32) (domain.Product, error) {
	product, err := l.products.AddStock(productID, qty)
	if err != nil {
		l.logger.WithError(err).WithFields(log.Fields{
			"product_id": productID,
			"qty":        qty,
		}).Error("stock compensation failed")
		return domain.Product{}, err
	}

	l.metrics.RecordStockCompensation()
	l.warnIfOverMaximum(&product)
	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"sku":        product.SKU,
		"qty":        qty,
	}).Info("stock reservation compensated")

	return product, nil
}

// Adjust — ручная корректировка остатка. В отличие от чекаута, subtract
// здесь срезается в ноль, а не завершается ошибкой.
func (l *Ledger) Adjust(productID string, qty int32, op domain.StockOp) (domain.Product, error) {
	if !op.Valid() {
		return domain.Product{}, domain.ErrStockOpInvalid
	}
	if qty < 0 && op != domain.StockOpSet {
		return domain.Product{}, domain.ErrItemQtyInvalid
	}

	var (
		product domain.Product
		err     error
	)
	switch op {
	case domain.StockOpAdd:
		product, err = l.products.AddStock(productID, qty)
	case domain.StockOpSubtract:
		product, err = l.products.SubtractStockClamped(productID, qty)
	case domain.StockOpSet:
		product, err = l.products.SetStock(productID, qty)
	}
	if err != nil {
		return domain.Product{}, err
	}

	l.metrics.RecordStockAdjustment(string(op))
	l.warnIfOverMaximum(&product)
	l.appendMovement(&product, fmt.Sprintf("%s %d", op, qty))
	l.emitAdjustment(&product, op, qty)

	l.logger.WithFields(log.Fields{
		"product_id": productID,
		"sku":        product.SKU,
		"op":         op,
		"qty":        qty,
		"current":    product.Stock.Current,
	}).Info("stock adjusted")

	return product, nil
}

// warnIfOverMaximum логирует превышение мягкой верхней границы остатка.
func (l *Ledger) warnIfOverMaximum(product *domain.Product) {
	if product.Stock.Maximum > 0 && product.Stock.Current > product.Stock.Maximum {
		l.logger.WithFields(log.Fields{
			"sku":     product.SKU,
			"current": product.Stock.Current,
			"maximum": product.Stock.Maximum,
		}).Warn("stock exceeds configured maximum")
	}
}

// appendMovement пишет движение остатка в аудит-журнал под ключом товара.
func (l *Ledger) appendMovement(product *domain.Product, reason string) {
	if l.timeline == nil {
		return
	}

	event := domain.TimelineEvent{
		SaleID:   product.ID,
		Type:     domain.TimelineStockAdjusted,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	}
	if err := l.timeline.Append(event); err != nil {
		l.logger.WithError(err).WithField("product_id", product.ID).Warn("append stock movement failed")
		return
	}
	l.metrics.RecordTimelineEvent()
}

// emitAdjustment ставит событие движения остатка в очередь публикации.
func (l *Ledger) emitAdjustment(product *domain.Product, op domain.StockOp, qty int32) {
	if l.outbox == nil {
		return
	}

	data, err := json.Marshal(map[string]interface{}{
		"product_id": product.ID,
		"sku":        product.SKU,
		"op":         string(op),
		"qty":        qty,
		"current":    product.Stock.Current,
	})
	if err != nil {
		l.logger.WithError(err).WithField("product_id", product.ID).Error("marshal stock event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "product",
		AggregateID:   product.ID,
		EventType:     domain.TimelineStockAdjusted,
		Payload:       data,
	}
	if _, err := l.outbox.Enqueue(msg); err != nil {
		l.logger.WithError(err).WithField("product_id", product.ID).Error("enqueue stock event failed")
		return
	}
	l.metrics.RecordOutboxEvent()
}

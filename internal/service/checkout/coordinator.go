package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/metrics"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/numbering"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/stock"
)

// ItemRequest — позиция входящего запроса на чекаут.
type ItemRequest struct {
	ProductID string
	Qty       int32
	// UnitPriceMinor == 0 означает "взять цену из каталога".
	UnitPriceMinor int64
	DiscountMinor  int64
	TaxMinor       int64
}

// PaymentInfo — сведения об оплате чека.
type PaymentInfo struct {
	Method            domain.PaymentMethod
	CashReceivedMinor int64
	CardLast4         string
	TransactionID     string
}

// Request — входящий запрос на создание чека.
type Request struct {
	Items         []ItemRequest
	Payment       PaymentInfo
	CashierID     string
	CustomerID    string
	DiscountMinor int64
	Notes         string
}

// reservation фиксирует успешно списанный остаток для возможного отката.
type reservation struct {
	productID string
	qty       int32
}

// Coordinator оркестрирует чекаут: валидация позиций, атомарные списания
// остатков, расчёт сумм, выдача номера, персист чека. Любой сбой после
// частичных списаний компенсируется явно — координатор никогда не
// полагается на внешний менеджер транзакций для отката своих эффектов.
type Coordinator struct {
	products domain.ProductRepository
	sales    domain.SaleRepository
	ledger   *stock.Ledger
	numbers  *numbering.Generator
	outbox   domain.OutboxRepository
	timeline domain.TimelineRepository
	cloud    domain.CloudBackupService
	clock    domain.Clock
	logger   *log.Entry
	metrics  *metrics.POSMetrics
}

// NewCoordinator создаёт рабочий экземпляр координатора чекаута.
func NewCoordinator(
	products domain.ProductRepository,
	sales domain.SaleRepository,
	ledger *stock.Ledger,
	numbers *numbering.Generator,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	clock domain.Clock,
	logger *log.Entry,
) *Coordinator {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	return &Coordinator{
		products: products,
		sales:    sales,
		ledger:   ledger,
		numbers:  numbers,
		outbox:   outbox,
		timeline: timeline,
		clock:    clock,
		logger:   logger,
		metrics:  metrics.NewPOSMetrics(),
	}
}

// NewCoordinatorWithoutMetrics создаёт координатор без метрик (для тестов).
func NewCoordinatorWithoutMetrics(
	products domain.ProductRepository,
	sales domain.SaleRepository,
	ledger *stock.Ledger,
	numbers *numbering.Generator,
	outbox domain.OutboxRepository,
	timeline domain.TimelineRepository,
	clock domain.Clock,
	logger *log.Entry,
) *Coordinator {
	c := NewCoordinator(products, sales, ledger, numbers, outbox, timeline, clock, logger)
	c.metrics = nil
	return c
}

// WithCloudBackup подключает внешний сервис облачной синхронизации.
// Ошибки бэкапа логируются и не влияют на результат чекаута.
func (c *Coordinator) WithCloudBackup(cloud domain.CloudBackupService) *Coordinator {
	c.cloud = cloud
	return c
}

// CreateSale проводит чек. Гарантия: чек со статусом completed означает,
// что каждое списание по его позициям зафиксировано ровно один раз; чек,
// который не удалось сохранить, оставляет остатки ровно такими, какими
// они были до вызова (с учётом компенсаций).
func (c *Coordinator) CreateSale(req Request) (domain.Sale, error) {
	start := time.Now()
	c.metrics.RecordCheckoutStarted()
	defer func() {
		c.metrics.RecordCheckoutDuration(time.Since(start))
	}()

	saleID := uuid.NewString()
	logger := c.logger.WithField("sale_id", saleID)

	catalog, err := c.validate(req)
	if err != nil {
		c.metrics.RecordCheckoutFailed("validation")
		logger.WithError(err).Warn("checkout rejected by validation")
		return domain.Sale{}, err
	}

	// Шаг резервирования: списываем остатки в порядке позиций. Первый же
	// отказ откатывает все ранее успешные списания этого чека.
	reserved := make([]reservation, 0, len(req.Items))
	for _, item := range req.Items {
		if _, err := c.ledger.Reserve(item.ProductID, item.Qty); err != nil {
			c.compensateAll(reserved, logger)
			c.appendTimeline(saleID, domain.TimelineCheckoutFailed, err.Error())
			if domain.IsInsufficientStock(err) {
				c.metrics.RecordCheckoutFailed("insufficient_stock")
				logger.WithError(err).WithField("product_id", item.ProductID).Warn("checkout failed: insufficient stock")
			} else {
				c.metrics.RecordCheckoutFailed("reserve")
				logger.WithError(err).WithField("product_id", item.ProductID).Error("checkout failed on reserve")
			}
			return domain.Sale{}, err
		}
		reserved = append(reserved, reservation{productID: item.ProductID, qty: item.Qty})
	}

	sale := c.buildSale(saleID, req, catalog)

	// Персист с одним внутренним retry на гонку номера: свежая
	// последовательность вместо провала всего чекаута.
	const maxNumberAttempts = 2
	for attempt := 1; ; attempt++ {
		number, numErr := c.numbers.Next(c.clock.Now())
		if numErr != nil {
			c.compensateAll(reserved, logger)
			c.appendTimeline(saleID, domain.TimelineCheckoutFailed, numErr.Error())
			c.metrics.RecordCheckoutFailed("numbering")
			logger.WithError(numErr).Error("checkout failed on number allocation")
			return domain.Sale{}, numErr
		}
		sale.SaleNumber = number

		createErr := c.sales.Create(sale)
		if createErr == nil {
			break
		}
		if errors.Is(createErr, domain.ErrSaleNumberCollision) && attempt < maxNumberAttempts {
			c.metrics.RecordNumberCollision()
			logger.WithField("sale_number", number).Warn("sale number collision, retrying with fresh sequence")
			continue
		}

		c.compensateAll(reserved, logger)
		c.appendTimeline(saleID, domain.TimelineCheckoutFailed, createErr.Error())
		c.metrics.RecordCheckoutFailed("persistence")
		logger.WithError(createErr).Error("checkout failed on persist, reservations compensated")
		return domain.Sale{}, fmt.Errorf("persist sale: %w", createErr)
	}

	c.metrics.RecordCheckoutCompleted()
	logger.WithFields(log.Fields{
		"sale_number": sale.SaleNumber,
		"total_minor": sale.TotalMinor,
		"items":       len(sale.Items),
	}).Info("sale completed")

	c.appendTimeline(sale.ID, domain.TimelineSaleCompleted, "")
	c.emitEvent(&sale, "SaleCompleted", map[string]interface{}{
		"sale_number": sale.SaleNumber,
		"total_minor": sale.TotalMinor,
		"cashier_id":  sale.CashierID,
	})
	c.backup(&sale)

	return sale, nil
}

// validate проверяет запрос и возвращает участвующие товары по их ID.
func (c *Coordinator) validate(req Request) (map[string]domain.Product, error) {
	if req.CashierID == "" {
		return nil, domain.ErrCashierRequired
	}
	if !req.Payment.Method.Valid() {
		return nil, domain.ErrPaymentMethodInvalid
	}
	if len(req.Items) == 0 {
		return nil, domain.ErrItemsRequired
	}
	if req.DiscountMinor < 0 {
		return nil, domain.ErrDiscountInvalid
	}

	catalog := make(map[string]domain.Product, len(req.Items))
	for _, item := range req.Items {
		if item.Qty < 1 {
			return nil, domain.ErrItemQtyInvalid
		}
		if item.UnitPriceMinor < 0 {
			return nil, domain.ErrItemPriceInvalid
		}
		if item.DiscountMinor < 0 {
			return nil, domain.ErrItemDiscountInvalid
		}
		if item.TaxMinor < 0 {
			return nil, domain.ErrItemTaxInvalid
		}

		product, err := c.products.Get(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("product %s: %w", product.SKU, domain.ErrProductInactive)
		}
		catalog[item.ProductID] = product
	}

	return catalog, nil
}

// buildSale собирает чек из запроса и каталожных данных. Все суммы — в
// минимальных денежных единицах, без плавающей точки.
func (c *Coordinator) buildSale(saleID string, req Request, catalog map[string]domain.Product) domain.Sale {
	now := c.clock.Now().UTC()

	items := make([]domain.SaleItem, 0, len(req.Items))
	for _, item := range req.Items {
		product := catalog[item.ProductID]
		unitPrice := item.UnitPriceMinor
		if unitPrice == 0 {
			unitPrice = product.PriceMinor
		}
		items = append(items, domain.SaleItem{
			ID:             uuid.NewString(),
			ProductID:      product.ID,
			SKU:            product.SKU,
			Qty:            item.Qty,
			UnitPriceMinor: unitPrice,
			DiscountMinor:  item.DiscountMinor,
			TaxMinor:       item.TaxMinor,
			CreatedAt:      now,
		})
	}

	sale := domain.Sale{
		ID:            saleID,
		CustomerID:    req.CustomerID,
		CashierID:     req.CashierID,
		Items:         items,
		DiscountMinor: req.DiscountMinor,
		PaymentMethod: req.Payment.Method,
		PaymentDetails: domain.PaymentDetails{
			CashReceivedMinor: req.Payment.CashReceivedMinor,
			CardLast4:         req.Payment.CardLast4,
			TransactionID:     req.Payment.TransactionID,
		},
		Status:    domain.SaleStatusCompleted,
		Notes:     req.Notes,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sale.CalculateTotals()

	if sale.PaymentMethod == domain.PaymentMethodCash && sale.PaymentDetails.CashReceivedMinor > sale.TotalMinor {
		sale.PaymentDetails.ChangeMinor = sale.PaymentDetails.CashReceivedMinor - sale.TotalMinor
	}

	return sale
}

// compensateAll откатывает успешные списания в обратном порядке.
func (c *Coordinator) compensateAll(reserved []reservation, logger *log.Entry) {
	for i := len(reserved) - 1; i >= 0; i-- {
		if _, err := c.ledger.Compensate(reserved[i].productID, reserved[i].qty); err != nil {
			logger.WithError(err).WithFields(log.Fields{
				"product_id": reserved[i].productID,
				"qty":        reserved[i].qty,
			}).Error("compensation failed, stock requires manual reconciliation")
		}
	}
}

func (c *Coordinator) appendTimeline(saleID, eventType, reason string) {
	if c.timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		SaleID:   saleID,
		Type:     eventType,
		Reason:   reason,
		Occurred: c.clock.Now().UTC(),
	}
	if err := c.timeline.Append(event); err != nil {
		c.logger.WithError(err).WithField("sale_id", saleID).Warn("append timeline event failed")
		return
	}
	c.metrics.RecordTimelineEvent()
}

func (c *Coordinator) emitEvent(sale *domain.Sale, eventType string, payload map[string]interface{}) {
	if c.outbox == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["sale_id"] = sale.ID

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"sale_id": sale.ID,
			"event":   eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "sale",
		AggregateID:   sale.ID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := c.outbox.Enqueue(msg); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{
			"sale_id": sale.ID,
			"event":   eventType,
		}).Error("enqueue event failed")
		return
	}
	c.metrics.RecordOutboxEvent()
}

// backup отправляет проведённый чек во внешний сервис синхронизации.
func (c *Coordinator) backup(sale *domain.Sale) {
	if c.cloud == nil {
		return
	}
	if err := c.cloud.BackupSale(*sale); err != nil {
		c.logger.WithError(err).WithField("sale_id", sale.ID).Warn("cloud backup failed")
	}
}

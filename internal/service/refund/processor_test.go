package refund_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/refund"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newProcessor(t *testing.T) (*refund.Processor, domain.SaleRepository, domain.TimelineRepository) {
	t.Helper()

	sales := memory.NewSaleRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()
	clock := fixedClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	return refund.NewProcessorWithoutMetrics(sales, outbox, timeline, clock, nil), sales, timeline
}

func seedCompletedSale(t *testing.T, sales domain.SaleRepository, totalMinor int64) domain.Sale {
	t.Helper()

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:         "sale-1",
		SaleNumber: "SALE-20260831-0001",
		CashierID:  "cashier-1",
		Items: []domain.SaleItem{
			{ID: "item-1", ProductID: "prod-1", SKU: "sku-1", Qty: 1, UnitPriceMinor: totalMinor, CreatedAt: now},
		},
		PaymentMethod: domain.PaymentMethodCard,
		Status:        domain.SaleStatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sale.CalculateTotals()
	if err := sales.Create(sale); err != nil {
		t.Fatalf("seed sale failed: %v", err)
	}
	return sale
}

func TestRefund_Full(t *testing.T) {
	processor, sales, timeline := newProcessor(t)
	seedCompletedSale(t, sales, 2000)

	sale, err := processor.Refund("sale-1", 2000, "damaged", "manager-1")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	if sale.Status != domain.SaleStatusRefunded {
		t.Fatalf("expected refunded, got %s", sale.Status)
	}
	if sale.RefundedMinor != 2000 {
		t.Fatalf("expected refunded 2000, got %d", sale.RefundedMinor)
	}
	if sale.RefundedBy != "manager-1" || sale.RefundReason != "damaged" {
		t.Fatalf("audit fields not set: %+v", sale)
	}
	if sale.RefundedAt.IsZero() {
		t.Fatal("expected refunded_at to be set")
	}

	stored, err := sales.Get("sale-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.SaleStatusRefunded {
		t.Fatalf("expected persisted refunded, got %s", stored.Status)
	}

	events, err := timeline.List("sale-1")
	if err != nil {
		t.Fatalf("timeline failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.TimelineSaleRefunded {
		t.Fatalf("unexpected timeline: %+v", events)
	}
}

func TestRefund_PartialSequence(t *testing.T) {
	processor, sales, _ := newProcessor(t)
	seedCompletedSale(t, sales, 2000)

	sale, err := processor.Refund("sale-1", 700, "first", "manager-1")
	if err != nil {
		t.Fatalf("first refund failed: %v", err)
	}
	if sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected still completed after partial, got %s", sale.Status)
	}
	if sale.RefundableMinor() != 1300 {
		t.Fatalf("expected refundable 1300, got %d", sale.RefundableMinor())
	}

	// Второй частичный возврат добивает до полного.
	sale, err = processor.Refund("sale-1", 1300, "second", "manager-1")
	if err != nil {
		t.Fatalf("second refund failed: %v", err)
	}
	if sale.Status != domain.SaleStatusRefunded {
		t.Fatalf("expected refunded, got %s", sale.Status)
	}

	// Третий возврат превышает остаток.
	_, err = processor.Refund("sale-1", 1, "third", "manager-1")
	if !errors.Is(err, domain.ErrSaleNotRefundable) {
		t.Fatalf("expected ErrSaleNotRefundable, got %v", err)
	}
}

func TestRefund_ExceedsBalance(t *testing.T) {
	processor, sales, _ := newProcessor(t)
	seedCompletedSale(t, sales, 2000)

	if _, err := processor.Refund("sale-1", 2001, "too much", "manager-1"); !errors.Is(err, domain.ErrRefundExceedsBalance) {
		t.Fatalf("expected ErrRefundExceedsBalance, got %v", err)
	}

	// Отказ не меняет состояние.
	stored, err := sales.Get("sale-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.RefundedMinor != 0 || stored.Status != domain.SaleStatusCompleted {
		t.Fatalf("state changed on rejected refund: %+v", stored)
	}
}

func TestRefund_Validation(t *testing.T) {
	processor, sales, _ := newProcessor(t)
	seedCompletedSale(t, sales, 2000)

	if _, err := processor.Refund("sale-1", 0, "zero", "manager-1"); !errors.Is(err, domain.ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid, got %v", err)
	}
	if _, err := processor.Refund("sale-1", -5, "negative", "manager-1"); !errors.Is(err, domain.ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid, got %v", err)
	}
	if _, err := processor.Refund("sale-1", 100, "no actor", ""); !errors.Is(err, domain.ErrRefundActorRequired) {
		t.Fatalf("expected ErrRefundActorRequired, got %v", err)
	}
}

func TestRefund_NotFound(t *testing.T) {
	processor, _, _ := newProcessor(t)

	if _, err := processor.Refund("missing", 100, "reason", "manager-1"); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestRefund_NonCompletedSale(t *testing.T) {
	processor, sales, _ := newProcessor(t)

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:         "sale-1",
		SaleNumber: "SALE-20260831-0001",
		CashierID:  "cashier-1",
		Items: []domain.SaleItem{
			{ID: "item-1", SKU: "sku-1", Qty: 1, UnitPriceMinor: 100, CreatedAt: now},
		},
		PaymentMethod: domain.PaymentMethodCash,
		Status:        domain.SaleStatusCancelled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sale.CalculateTotals()
	if err := sales.Create(sale); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := processor.Refund("sale-1", 100, "reason", "manager-1"); !errors.Is(err, domain.ErrSaleNotRefundable) {
		t.Fatalf("expected ErrSaleNotRefundable, got %v", err)
	}
}

func TestRefund_ConcurrentPartialRefundsNeverExceedTotal(t *testing.T) {
	processor, sales, _ := newProcessor(t)
	seedCompletedSale(t, sales, 1000)

	// Десять конкурентных возвратов по 300: максимум три могут пройти.
	const workers = 10

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := processor.Refund("sale-1", 300, "concurrent", "manager-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}

	stored, err := sales.Get("sale-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.RefundedMinor > stored.TotalMinor {
		t.Fatalf("refunded %d exceeds total %d", stored.RefundedMinor, stored.TotalMinor)
	}
	if int64(succeeded)*300 != stored.RefundedMinor {
		t.Fatalf("refunded %d does not match %d successful refunds", stored.RefundedMinor, succeeded)
	}
	if succeeded > 3 {
		t.Fatalf("expected at most 3 successful refunds, got %d", succeeded)
	}
}

package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
)

func newStoredSale(id, number string) domain.Sale {
	now := time.Now().UTC()
	sale := domain.Sale{
		ID:         id,
		SaleNumber: number,
		CashierID:  "cashier-1",
		Items: []domain.SaleItem{
			{ID: "item-1", ProductID: "prod-1", SKU: "sku-1", Qty: 1, UnitPriceMinor: 1000, CreatedAt: now},
		},
		PaymentMethod: domain.PaymentMethodCard,
		Status:        domain.SaleStatusCompleted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	sale.CalculateTotals()
	return sale
}

func TestSaleRepository_CreateGet(t *testing.T) {
	repo := memory.NewSaleRepository()
	sale := newStoredSale("sale-1", "SALE-20260831-0001")

	if err := repo.Create(sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.SaleNumber != sale.SaleNumber {
		t.Fatalf("expected number %s, got %s", sale.SaleNumber, stored.SaleNumber)
	}
	if len(stored.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(stored.Items))
	}

	byNumber, err := repo.GetByNumber(sale.SaleNumber)
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if byNumber.ID != sale.ID {
		t.Fatalf("expected id %s, got %s", sale.ID, byNumber.ID)
	}
}

func TestSaleRepository_NumberCollision(t *testing.T) {
	repo := memory.NewSaleRepository()
	if err := repo.Create(newStoredSale("sale-1", "SALE-20260831-0001")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := repo.Create(newStoredSale("sale-2", "SALE-20260831-0001"))
	if !errors.Is(err, domain.ErrSaleNumberCollision) {
		t.Fatalf("expected ErrSaleNumberCollision, got %v", err)
	}
}

func TestSaleRepository_Save_OptimisticLocking(t *testing.T) {
	repo := memory.NewSaleRepository()
	sale := newStoredSale("sale-1", "SALE-20260831-0001")
	if err := repo.Create(sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	first, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	second, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	first.RefundedMinor = 500
	if err := repo.Save(first); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Второе сохранение несёт устаревшую версию.
	second.RefundedMinor = 300
	if err := repo.Save(second); !errors.Is(err, domain.ErrSaleVersionConflict) {
		t.Fatalf("expected ErrSaleVersionConflict, got %v", err)
	}

	stored, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.RefundedMinor != 500 {
		t.Fatalf("expected refunded 500, got %d", stored.RefundedMinor)
	}
	if stored.Version != sale.Version+1 {
		t.Fatalf("expected version %d, got %d", sale.Version+1, stored.Version)
	}
}

func TestSaleRepository_Save_Missing(t *testing.T) {
	repo := memory.NewSaleRepository()
	err := repo.Save(newStoredSale("missing", "SALE-20260831-0009"))
	if !errors.Is(err, domain.ErrSaleNotFound) {
		t.Fatalf("expected ErrSaleNotFound, got %v", err)
	}
}

func TestSaleRepository_ItemsImmutable(t *testing.T) {
	repo := memory.NewSaleRepository()
	sale := newStoredSale("sale-1", "SALE-20260831-0001")
	if err := repo.Create(sale); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	stored.Items = nil
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	after, err := repo.Get(sale.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(after.Items) != 1 {
		t.Fatalf("expected items preserved, got %d", len(after.Items))
	}
}

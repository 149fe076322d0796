package domain

import "time"

// StockOp задаёт операцию ручной корректировки остатка.
type StockOp string

const (
	// StockOpAdd — приход товара на склад.
	StockOpAdd StockOp = "add"
	// StockOpSubtract — списание; срезается в ноль вместо ухода в минус.
	StockOpSubtract StockOp = "subtract"
	// StockOpSet — установка абсолютного значения остатка.
	StockOpSet StockOp = "set"
)

// Valid проверяет, что операция относится к поддерживаемым значениям.
func (op StockOp) Valid() bool {
	switch op {
	case StockOpAdd, StockOpSubtract, StockOpSet:
		return true
	default:
		return false
	}
}

// StockStatus — производное состояние остатка для витрины.
type StockStatus string

const (
	StockStatusInStock    StockStatus = "in_stock"
	StockStatusLowStock   StockStatus = "low_stock"
	StockStatusOutOfStock StockStatus = "out_of_stock"
)

// Stock хранит текущий остаток и пороговые значения товара.
type Stock struct {
	// Current — доступное количество; инвариант Current >= 0 поддерживается хранилищем.
	Current int32
	// Minimum — порог, ниже которого товар считается low_stock.
	Minimum int32
	// Maximum — мягкая верхняя граница; превышение логируется, но не запрещается.
	Maximum int32
}

// Product описывает товар каталога. Остаток меняет только StockLedger.
type Product struct {
	ID   string
	SKU  string
	Name string
	// PriceMinor — розничная цена в минимальных денежных единицах (центы/копейки).
	PriceMinor int64
	// CostMinor — закупочная стоимость в минимальных единицах.
	CostMinor int64
	Stock     Stock
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockStatus возвращает производный статус остатка.
func (p *Product) StockStatus() StockStatus {
	switch {
	case p.Stock.Current <= 0:
		return StockStatusOutOfStock
	case p.Stock.Current <= p.Stock.Minimum:
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}

// Validate проверяет базовые поля товара и возвращает список замечаний.
func (p *Product) Validate() []error {
	var errs []error

	if p.SKU == "" {
		errs = append(errs, ErrProductSKURequired)
	}
	if p.PriceMinor < 0 || p.CostMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}

	return errs
}

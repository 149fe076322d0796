package domain

import "time"

// SaleStatus описывает жизненный цикл чека.
type SaleStatus string

const (
	// SaleStatusPending — чек создан, но ещё не проведён (зарезервировано для отложенных продаж).
	SaleStatusPending SaleStatus = "pending"
	// SaleStatusCompleted — чек проведён, списания остатков зафиксированы.
	SaleStatusCompleted SaleStatus = "completed"
	// SaleStatusCancelled — чек отменён до проведения.
	SaleStatusCancelled SaleStatus = "cancelled"
	// SaleStatusRefunded — чек возвращён полностью.
	SaleStatusRefunded SaleStatus = "refunded"
)

// PaymentMethod — способ оплаты чека.
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "cash"
	PaymentMethodCard          PaymentMethod = "card"
	PaymentMethodDigitalWallet PaymentMethod = "digital_wallet"
	PaymentMethodBankTransfer  PaymentMethod = "bank_transfer"
	PaymentMethodCheck         PaymentMethod = "check"
	PaymentMethodMixed         PaymentMethod = "mixed"
)

// Valid проверяет, что способ оплаты относится к поддерживаемым значениям.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodDigitalWallet,
		PaymentMethodBankTransfer, PaymentMethodCheck, PaymentMethodMixed:
		return true
	default:
		return false
	}
}

// SaleItem представляет одну позицию чека. Позиции фиксируются при создании
// чека и после этого не редактируются.
type SaleItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductID — слабая ссылка на товар: только lookup, никогда владение.
	// Чек остаётся читаемым, даже если товар позже деактивирован.
	ProductID string
	// SKU дублируется в позицию, чтобы чек был самодостаточен для чтения.
	SKU string
	// Qty — количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// DiscountMinor — скидка на единицу в минимальных единицах.
	DiscountMinor int64
	// TaxMinor — налог на единицу в минимальных единицах.
	TaxMinor int64
	// LineTotalMinor = (UnitPriceMinor - DiscountMinor) * Qty.
	LineTotalMinor int64
	CreatedAt      time.Time
}

// PaymentDetails — дополнительные сведения об оплате наличными/картой.
type PaymentDetails struct {
	CashReceivedMinor int64
	ChangeMinor       int64
	CardLast4         string
	TransactionID     string
}

// Sale агрегирует чек и его позиции. После проведения чек неизменяем,
// кроме статуса и refund-полей, которые меняет только RefundProcessor.
type Sale struct {
	ID string
	// SaleNumber — уникальный человекочитаемый номер формата SALE-YYYYMMDD-NNNN.
	SaleNumber     string
	CustomerID     string // Может быть пустым: розничная продажа без клиента.
	CashierID      string
	Items          []SaleItem
	SubtotalMinor  int64
	DiscountMinor  int64
	TaxMinor       int64
	TotalMinor     int64
	PaymentMethod  PaymentMethod
	PaymentDetails PaymentDetails
	Status         SaleStatus
	RefundedMinor  int64
	RefundedBy     string
	RefundReason   string
	RefundedAt     time.Time
	Notes          string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CalculateTotals пересчитывает суммы чека из позиций:
// lineTotal = (unitPrice - discount) * qty; tax суммируется на единицу товара;
// total = subtotal + tax - discount чека. Только целочисленная арифметика
// в минимальных единицах.
func (s *Sale) CalculateTotals() {
	var subtotal, tax int64
	for i := range s.Items {
		item := &s.Items[i]
		item.LineTotalMinor = (item.UnitPriceMinor - item.DiscountMinor) * int64(item.Qty)
		subtotal += item.LineTotalMinor
		tax += item.TaxMinor * int64(item.Qty)
	}
	s.SubtotalMinor = subtotal
	s.TaxMinor = tax
	s.TotalMinor = subtotal + tax - s.DiscountMinor
}

// RefundableMinor возвращает остаток, доступный к возврату.
func (s *Sale) RefundableMinor() int64 {
	return s.TotalMinor - s.RefundedMinor
}

// ValidateInvariants проверяет базовые инварианты чека и возвращает список замечаний.
func (s *Sale) ValidateInvariants() []error {
	var errs []error

	if s.CashierID == "" {
		errs = append(errs, ErrCashierRequired)
	}
	if !s.PaymentMethod.Valid() {
		errs = append(errs, ErrPaymentMethodInvalid)
	}
	if len(s.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if s.DiscountMinor < 0 {
		errs = append(errs, ErrDiscountInvalid)
	}

	// Сверяем сумму чека с суммой позиций.
	var subtotal, tax int64
	for _, item := range s.Items {
		if item.Qty < 1 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.DiscountMinor < 0 {
			errs = append(errs, ErrItemDiscountInvalid)
		}
		if item.TaxMinor < 0 {
			errs = append(errs, ErrItemTaxInvalid)
		}
		subtotal += (item.UnitPriceMinor - item.DiscountMinor) * int64(item.Qty)
		tax += item.TaxMinor * int64(item.Qty)
	}
	if subtotal+tax-s.DiscountMinor != s.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}

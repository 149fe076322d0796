package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего идентификатора кассира.
	ErrCashierRequired = errors.New("cashier_id is required")
	// Ошибка отсутствия хотя бы одной позиции в чеке.
	ErrItemsRequired = errors.New("sale must contain at least one item")
	// Ошибка при некорректном количестве товара (< 1).
	ErrItemQtyInvalid = errors.New("item quantity must be at least one")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка, если скидка позиции отрицательная.
	ErrItemDiscountInvalid = errors.New("item discount must be non-negative")
	// Ошибка, если налог позиции отрицательный.
	ErrItemTaxInvalid = errors.New("item tax must be non-negative")
	// Ошибка отрицательной скидки на весь чек.
	ErrDiscountInvalid = errors.New("sale discount must be non-negative")
	// Ошибка неподдерживаемого способа оплаты.
	ErrPaymentMethodInvalid = errors.New("unsupported payment method")
	// Ошибка несоответствия итоговой суммы и сумм позиций.
	ErrAmountMismatch = errors.New("sale total does not match items sum")
	// Ошибка некорректной суммы возврата (<= 0).
	ErrRefundAmountInvalid = errors.New("refund amount must be greater than zero")
	// Ошибка отсутствующего идентификатора сотрудника, проводящего возврат.
	ErrRefundActorRequired = errors.New("refund actor is required")
	// Ошибка неподдерживаемой операции над остатком.
	ErrStockOpInvalid = errors.New("unsupported stock operation")
	// Ошибка отсутствующего SKU товара.
	ErrProductSKURequired = errors.New("product sku is required")
	// ErrProductAlreadyExists — товар с таким ID или SKU уже есть в каталоге.
	ErrProductAlreadyExists = errors.New("product already exists")
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInactive — товар снят с продажи и не может участвовать в чеке.
	ErrProductInactive = errors.New("product is inactive")
	// ErrInsufficientStock — остатка не хватает для позиции чека.
	// Конкретный товар и доступное количество несёт InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSaleNotFound возвращается, если чек не найден в репозитории.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrSaleNumberCollision — гонка на уникальном номере чека; допускает retry.
	ErrSaleNumberCollision = errors.New("sale number collision")
	// ErrSaleVersionConflict сигнализирует о конфликте версий при сохранении чека.
	ErrSaleVersionConflict = errors.New("sale version conflict")
	// ErrSaleNotRefundable — возврат возможен только по завершённому чеку.
	ErrSaleNotRefundable = errors.New("only completed sales can be refunded")
	// ErrRefundExceedsBalance — сумма возврата превышает остаток к возврату.
	ErrRefundExceedsBalance = errors.New("refund amount exceeds refundable balance")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хеш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyNotFound — запись по ключу отсутствует.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — тот же ключ, но другое тело запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyInFlight — повтор запроса, пока оригинал ещё обрабатывается.
	ErrIdempotencyInFlight = errors.New("request with this idempotency key is in flight")
)

// InsufficientStockError уточняет, какого товара не хватило и сколько доступно.
type InsufficientStockError struct {
	SKU       string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.SKU, e.Requested, e.Available)
}

// Is позволяет errors.Is(err, ErrInsufficientStock) для типизированной ошибки.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrSaleVersionConflict)
}

// IsInsufficientStock проверяет, является ли ошибка нехваткой остатка.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, ErrInsufficientStock)
}

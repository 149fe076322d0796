package domain

// ProductRepository описывает требования к хранилищу товаров.
// Все мутации остатка — атомарные примитивы хранилища: никакого
// read-modify-write на стороне вызывающего.
type ProductRepository interface {
	// Create сохраняет новый товар. Возвращает ошибку, если SKU уже занят.
	Create(product Product) error
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
	// GetBySKU возвращает товар по SKU или ErrProductNotFound.
	GetBySKU(sku string) (Product, error)
	// DecrementStockGuarded атомарно уменьшает остаток на qty, только если
	// остатка достаточно; иначе возвращает InsufficientStockError, не меняя
	// состояние. Проверка и списание — один неделимый шаг.
	DecrementStockGuarded(id string, qty int32) (Product, error)
	// AddStock безусловно увеличивает остаток (приход и компенсация).
	AddStock(id string, qty int32) (Product, error)
	// SubtractStockClamped уменьшает остаток, срезая в ноль вместо ухода в
	// минус. Только для ручных корректировок, не для чекаута.
	SubtractStockClamped(id string, qty int32) (Product, error)
	// SetStock устанавливает абсолютное значение остатка (не ниже нуля).
	SetStock(id string, qty int32) (Product, error)
}

// SaleRepository описывает требования к хранилищу чеков.
type SaleRepository interface {
	// Create сохраняет новый чек вместе с позициями. Возвращает
	// ErrSaleNumberCollision, если номер чека уже занят.
	Create(sale Sale) error
	// Get возвращает чек по идентификатору или ErrSaleNotFound.
	Get(id string) (Sale, error)
	// GetByNumber возвращает чек по уникальному номеру или ErrSaleNotFound.
	GetByNumber(saleNumber string) (Sale, error)
	// Save применяет обновления refund-полей и статуса с учётом optimistic
	// locking; при несовпадении версии возвращает ErrSaleVersionConflict.
	Save(sale Sale) error
}

// CounterRepository выдаёт монотонные последовательности по именованным
// bucket'ам (по одному на календарный день для нумерации чеков).
type CounterRepository interface {
	// Next атомарно инкрементирует счётчик bucket'а и возвращает новое
	// значение. Гарантирует отсутствие дублей при конкурентных вызовах.
	Next(bucket string) (int64, error)
}

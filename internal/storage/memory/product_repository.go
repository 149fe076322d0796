package memory

import (
	"sync"
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// productRepositoryInMemory — in-memory реализация ProductRepository.
// Все мутации остатка выполняются под одним мьютексом, поэтому проверка
// и списание неделимы, как и требует контракт.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
	skus  map[string]string // SKU -> product id
}

// NewProductRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewProductRepository() domain.ProductRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
		skus:  make(map[string]string),
	}
}

// Create сохраняет новый товар, если ID и SKU ещё не заняты.
func (r *productRepositoryInMemory) Create(product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[product.ID]; exists {
		return domain.ErrProductAlreadyExists
	}
	if _, exists := r.skus[product.SKU]; exists {
		return domain.ErrProductAlreadyExists
	}
	r.items[product.ID] = product
	r.skus[product.SKU] = product.ID
	return nil
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) Get(id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// GetBySKU возвращает товар по SKU или ErrProductNotFound.
func (r *productRepositoryInMemory) GetBySKU(sku string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.skus[sku]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return r.items[id], nil
}

// DecrementStockGuarded списывает qty, только если остатка достаточно.
// Сравнение и декремент происходят под одним захватом мьютекса.
func (r *productRepositoryInMemory) DecrementStockGuarded(id string, qty int32) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if product.Stock.Current < qty {
		return domain.Product{}, &domain.InsufficientStockError{
			SKU:       product.SKU,
			Requested: qty,
			Available: product.Stock.Current,
		}
	}
	product.Stock.Current -= qty
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// AddStock безусловно увеличивает остаток.
func (r *productRepositoryInMemory) AddStock(id string, qty int32) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	product.Stock.Current += qty
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// SubtractStockClamped уменьшает остаток, срезая результат в ноль.
func (r *productRepositoryInMemory) SubtractStockClamped(id string, qty int32) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	product.Stock.Current -= qty
	if product.Stock.Current < 0 {
		product.Stock.Current = 0
	}
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

// SetStock устанавливает абсолютное значение остатка (не ниже нуля).
func (r *productRepositoryInMemory) SetStock(id string, qty int32) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if qty < 0 {
		qty = 0
	}
	product.Stock.Current = qty
	product.UpdatedAt = time.Now().UTC()
	r.items[id] = product
	return product, nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)

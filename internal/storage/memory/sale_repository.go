package memory

import (
	"sync"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// saleRepositoryInMemory — простая in-memory реализация SaleRepository.
type saleRepositoryInMemory struct {
	mu      sync.RWMutex
	items   map[string]domain.Sale
	numbers map[string]string // saleNumber -> sale id
}

// NewSaleRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewSaleRepository() domain.SaleRepository {
	return &saleRepositoryInMemory{
		items:   make(map[string]domain.Sale),
		numbers: make(map[string]string),
	}
}

// Create сохраняет новый чек, если ID и номер ещё не заняты.
func (r *saleRepositoryInMemory) Create(sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[sale.ID]; exists {
		return domain.ErrSaleVersionConflict
	}
	if _, exists := r.numbers[sale.SaleNumber]; exists {
		return domain.ErrSaleNumberCollision
	}
	// Сохраняем копию позиций, чтобы избежать мутаций извне.
	sale.Items = cloneItems(sale.Items)
	r.items[sale.ID] = sale
	r.numbers[sale.SaleNumber] = sale.ID
	return nil
}

// Get возвращает чек или ErrSaleNotFound, если его нет.
func (r *saleRepositoryInMemory) Get(id string) (domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sale, ok := r.items[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	sale.Items = cloneItems(sale.Items)
	return sale, nil
}

// GetByNumber возвращает чек по уникальному номеру.
func (r *saleRepositoryInMemory) GetByNumber(saleNumber string) (domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.numbers[saleNumber]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	sale := r.items[id]
	sale.Items = cloneItems(sale.Items)
	return sale, nil
}

// Save перезаписывает чек, проверяя версию (optimistic locking).
func (r *saleRepositoryInMemory) Save(sale domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[sale.ID]
	if !ok {
		return domain.ErrSaleNotFound
	}
	if current.Version != sale.Version {
		return domain.ErrSaleVersionConflict
	}
	// Позиции неизменяемы после создания; сохраняем исходные.
	sale.Items = current.Items
	// Инкрементируем версию перед сохранением.
	sale.Version++
	r.items[sale.ID] = sale
	return nil
}

func cloneItems(items []domain.SaleItem) []domain.SaleItem {
	if items == nil {
		return nil
	}
	cloned := make([]domain.SaleItem, len(items))
	copy(cloned, items)
	return cloned
}

var _ domain.SaleRepository = (*saleRepositoryInMemory)(nil)

package memory

import (
	"sync"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// counterRepositoryInMemory — атомарный per-bucket счётчик под мьютексом.
type counterRepositoryInMemory struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewCounterRepository создаёт in-memory реализацию CounterRepository.
func NewCounterRepository() domain.CounterRepository {
	return &counterRepositoryInMemory{counters: make(map[string]int64)}
}

// Next инкрементирует счётчик bucket'а и возвращает новое значение.
// Инкремент и чтение — один неделимый шаг, дубликаты исключены.
func (r *counterRepositoryInMemory) Next(bucket string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[bucket]++
	return r.counters[bucket], nil
}

var _ domain.CounterRepository = (*counterRepositoryInMemory)(nil)

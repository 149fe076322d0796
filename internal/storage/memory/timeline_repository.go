package memory

import (
	"sort"
	"sync"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// timelineRepositoryInMemory хранит события аудита в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие в журнал чека.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.SaleID] = append(r.events[event.SaleID], event)

	sort.Slice(r.events[event.SaleID], func(i, j int) bool {
		return r.events[event.SaleID][i].Occurred.Before(r.events[event.SaleID][j].Occurred)
	})

	return nil
}

// List возвращает события чека в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(saleID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[saleID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)

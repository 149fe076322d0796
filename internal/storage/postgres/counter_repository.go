package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

type counterRepository struct {
	db *sql.DB
}

// NewCounterRepository создаёт PostgreSQL-реализацию CounterRepository.
func NewCounterRepository(store *Store) domain.CounterRepository {
	return &counterRepository{db: store.DB()}
}

// Next инкрементирует счётчик одним upsert'ом: конкурентные вызовы
// сериализуются на строке bucket'а и получают разные значения.
func (r *counterRepository) Next(bucket string) (int64, error) {
	if bucket == "" {
		return 0, fmt.Errorf("counter bucket is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var seq int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sale_counters (bucket, seq)
		VALUES ($1, 1)
		ON CONFLICT (bucket) DO UPDATE
		SET seq = sale_counters.seq + 1
		RETURNING seq
	`, bucket).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next counter value for %s: %w", bucket, err)
	}

	return seq, nil
}

var _ domain.CounterRepository = (*counterRepository)(nil)

package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения.
// Store не nil только при работе поверх PostgreSQL.
type Dependencies struct {
	Products    domain.ProductRepository
	Sales       domain.SaleRepository
	Counters    domain.CounterRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Store       *postgres.Store
	Logger      *log.Entry
}

// NewDependencies выбирает хранилище по конфигурации: задан DATABASE_URL —
// PostgreSQL с применёнными миграциями, иначе in-memory реализации.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL is not set, using in-memory storage")
		return &Dependencies{
			Products:    memory.NewProductRepository(),
			Sales:       memory.NewSaleRepository(),
			Counters:    memory.NewCounterRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Logger:      logger,
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("postgres storage initialized, migrations applied")

	return &Dependencies{
		Products:    postgres.NewProductRepository(store),
		Sales:       postgres.NewSaleRepository(store),
		Counters:    postgres.NewCounterRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Timeline:    postgres.NewTimelineRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		Store:       store,
		Logger:      logger,
	}, nil
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d == nil || d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}

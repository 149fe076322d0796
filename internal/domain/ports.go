package domain

import "time"

// Clock отдаёт текущее время; вынесен в порт ради детерминированных тестов
// нумерации и refund-таймстемпов.
type Clock interface {
	Now() time.Time
}

// IdentityProvider отдаёт идентификатор аутентифицированного сотрудника.
// Сама аутентификация — вне ядра.
type IdentityProvider interface {
	// ActorID возвращает идентификатор сотрудника или ошибку, если его нет.
	ActorID() (string, error)
}

// CloudBackupService — порт внешнего сервиса облачной синхронизации.
// Протокол синхронизации ядро не реализует, только вызывает.
type CloudBackupService interface {
	// BackupSale отправляет проведённый чек во внешнее хранилище.
	BackupSale(sale Sale) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла чека и движения остатков.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(saleID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

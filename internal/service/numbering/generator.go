package numbering

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// dateLayout — формат календарного bucket'а в номере чека.
const dateLayout = "20060102"

// Generator выдаёт уникальные номера чеков формата SALE-YYYYMMDD-NNNN.
// Последовательность сбрасывается ежедневно: на каждый день заводится
// собственный bucket атомарного счётчика. Подход "посчитать существующие
// записи и отформатировать" здесь принципиально не используется — у него
// окно гонки между чтением и записью, в котором два конкурентных вызова
// получают одинаковый номер.
type Generator struct {
	counters domain.CounterRepository
	logger   *log.Entry
}

// NewGenerator создаёт генератор номеров чеков.
func NewGenerator(counters domain.CounterRepository, logger *log.Entry) *Generator {
	if logger == nil {
		logger = log.WithField("component", "sale-numbering")
	}
	return &Generator{counters: counters, logger: logger}
}

// Next возвращает следующий свободный номер для календарной даты date.
// Гарантирует отсутствие дублей при конкурентных вызовах за счёт
// атомарного инкремента per-day счётчика.
func (g *Generator) Next(date time.Time) (string, error) {
	bucket := date.UTC().Format(dateLayout)

	seq, err := g.counters.Next(bucket)
	if err != nil {
		return "", fmt.Errorf("next sale sequence for %s: %w", bucket, err)
	}

	number := fmt.Sprintf("SALE-%s-%04d", bucket, seq)
	g.logger.WithFields(log.Fields{
		"bucket": bucket,
		"seq":    seq,
	}).Debug("sale number allocated")

	return number, nil
}

package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// POSMetrics содержит метрики транзакционного ядра кассы.
type POSMetrics struct {
	// Счётчики чекаута
	checkoutStarted   prometheus.Counter
	checkoutCompleted prometheus.Counter
	checkoutFailed    *prometheus.CounterVec

	// Гистограмма времени проведения чека
	checkoutDuration prometheus.Histogram

	// Нумерация чеков
	numberCollisions prometheus.Counter

	// Возвраты
	refundsProcessed prometheus.Counter
	refundsFailed    *prometheus.CounterVec

	// Движения остатков
	stockReservations  *prometheus.CounterVec
	stockCompensations prometheus.Counter
	stockAdjustments   *prometheus.CounterVec

	// События аудита и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewPOSMetrics создаёт новый экземпляр метрик ядра.
func NewPOSMetrics() *POSMetrics {
	return newPOSMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newPOSMetricsWithRegisterer(registerer prometheus.Registerer) *POSMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &POSMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_started_total",
			Help: "Total number of checkout operations started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_completed_total",
			Help: "Total number of checkout operations completed successfully",
		}),
		checkoutFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_checkout_failed_total",
			Help: "Total number of checkout operations failed grouped by reason",
		}, []string{"reason"}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "pos_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		numberCollisions: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_sale_number_collisions_total",
			Help: "Total number of sale number collisions retried",
		}),
		refundsProcessed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_refunds_processed_total",
			Help: "Total number of refunds applied",
		}),
		refundsFailed: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_refunds_failed_total",
			Help: "Total number of refund attempts rejected grouped by reason",
		}, []string{"reason"}),
		stockReservations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_stock_reservations_total",
			Help: "Total number of stock reservation attempts grouped by result",
		}, []string{"result"}),
		stockCompensations: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_stock_compensations_total",
			Help: "Total number of stock reservations reversed by compensation",
		}),
		stockAdjustments: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "pos_stock_adjustments_total",
			Help: "Total number of manual stock adjustments grouped by operation",
		}, []string{"op"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "pos_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

// RecordCheckoutStarted инкрементирует счётчик начатых чекаутов.
func (m *POSMetrics) RecordCheckoutStarted() {
	if m != nil {
		m.checkoutStarted.Inc()
	}
}

// RecordCheckoutCompleted инкрементирует счётчик успешных чекаутов.
func (m *POSMetrics) RecordCheckoutCompleted() {
	if m != nil {
		m.checkoutCompleted.Inc()
	}
}

// RecordCheckoutFailed инкрементирует счётчик неуспешных чекаутов.
func (m *POSMetrics) RecordCheckoutFailed(reason string) {
	if m != nil {
		m.checkoutFailed.WithLabelValues(reason).Inc()
	}
}

// RecordCheckoutDuration фиксирует длительность чекаута.
func (m *POSMetrics) RecordCheckoutDuration(d time.Duration) {
	if m != nil {
		m.checkoutDuration.Observe(d.Seconds())
	}
}

// RecordNumberCollision инкрементирует счётчик гонок на номере чека.
func (m *POSMetrics) RecordNumberCollision() {
	if m != nil {
		m.numberCollisions.Inc()
	}
}

// RecordRefundProcessed инкрементирует счётчик применённых возвратов.
func (m *POSMetrics) RecordRefundProcessed() {
	if m != nil {
		m.refundsProcessed.Inc()
	}
}

// RecordRefundFailed инкрементирует счётчик отклонённых возвратов.
func (m *POSMetrics) RecordRefundFailed(reason string) {
	if m != nil {
		m.refundsFailed.WithLabelValues(reason).Inc()
	}
}

// RecordStockReservation фиксирует результат попытки резервирования.
func (m *POSMetrics) RecordStockReservation(result string) {
	if m != nil {
		m.stockReservations.WithLabelValues(result).Inc()
	}
}

// RecordStockCompensation инкрементирует счётчик компенсаций.
func (m *POSMetrics) RecordStockCompensation() {
	if m != nil {
		m.stockCompensations.Inc()
	}
}

// RecordStockAdjustment фиксирует ручную корректировку остатка.
func (m *POSMetrics) RecordStockAdjustment(op string) {
	if m != nil {
		m.stockAdjustments.WithLabelValues(op).Inc()
	}
}

// RecordTimelineEvent инкрементирует счётчик событий аудита.
func (m *POSMetrics) RecordTimelineEvent() {
	if m != nil {
		m.timelineEvents.Inc()
	}
}

// RecordOutboxEvent инкрементирует счётчик отправленных в outbox событий.
func (m *POSMetrics) RecordOutboxEvent() {
	if m != nil {
		m.outboxEvents.Inc()
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/shopifydevguy1-ops/pos-system/internal/health"
	"github.com/shopifydevguy1-ops/pos-system/internal/messaging/kafka"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/checkout"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/cloud"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/idempotency"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/numbering"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/outbox"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/refund"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/stock"
	"github.com/shopifydevguy1-ops/pos-system/internal/transport/httpapi"
	"github.com/shopifydevguy1-ops/pos-system/internal/version"
)

// Run собирает зависимости и держит сервис до отмены контекста.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	clock := systemClock{}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Kafka опционален: без брокеров события копятся в outbox.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	ledger := stock.NewLedger(deps.Products, deps.Timeline, logger.WithField("component", "stock-ledger")).
		WithOutbox(deps.Outbox)
	numbers := numbering.NewGenerator(deps.Counters, logger.WithField("component", "sale-numbering"))

	coordinator := checkout.NewCoordinator(
		deps.Products,
		deps.Sales,
		ledger,
		numbers,
		deps.Outbox,
		deps.Timeline,
		clock,
		logger.WithField("component", "checkout"),
	)
	if cfg.CloudBackupMock {
		coordinator = coordinator.WithCloudBackup(cloud.NewMockService())
		logger.Info("cloud backup mock enabled")
	}

	refunds := refund.NewProcessor(
		deps.Sales,
		deps.Outbox,
		deps.Timeline,
		clock,
		logger.WithField("component", "refund"),
	)

	// Фоновые воркеры живут до отмены контекста.
	if kafkaProducer != nil {
		worker := outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, ""),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
		)
		go worker.Run(ctx)
	}

	cleanup := idempotency.NewCleanupWorker(deps.Idempotency)
	go cleanup.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.Store != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewFuncChecker("storage", func() error {
			return deps.Store.Ping(context.Background())
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler: httpapi.NewHandler(
			coordinator,
			refunds,
			ledger,
			deps.Products,
			deps.Sales,
			deps.Timeline,
			logger.WithField("component", "httpapi"),
		),
		Idempotency: deps.Idempotency,
		Clock:       clock,
		Logger:      logger.WithField("component", "httpapi"),
	})

	apiSrv := &http.Server{Addr: cfg.APIAddr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("API сервер слушает %s", cfg.APIAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем API сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http server shutdown with error")
	}
}

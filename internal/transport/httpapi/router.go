package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// RouterConfig собирает зависимости HTTP-слоя.
type RouterConfig struct {
	Handler     *Handler
	Idempotency domain.IdempotencyRepository
	Clock       domain.Clock
	Logger      *log.Entry
}

// NewRouter строит gin-маршрутизатор с маршрутами ядра.
// Idempotency-механика навешивается только на проведение чека.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	v1 := router.Group("/api/v1")

	sales := v1.Group("/sales")
	{
		createHandlers := []gin.HandlerFunc{}
		if cfg.Idempotency != nil {
			createHandlers = append(createHandlers, IdempotencyMiddleware(cfg.Idempotency, cfg.Clock, logger))
		}
		createHandlers = append(createHandlers, cfg.Handler.CreateSale)

		sales.POST("", createHandlers...)
		sales.POST("/:id/refund", cfg.Handler.RefundSale)
		sales.GET("/:id", cfg.Handler.GetSale)
		sales.GET("/:id/timeline", cfg.Handler.GetSaleTimeline)
	}

	products := v1.Group("/products")
	{
		products.POST("/:id/stock/adjust", cfg.Handler.AdjustStock)
		products.GET("/:id", cfg.Handler.GetProduct)
	}

	return router
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("request handled")
	}
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/checkout"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/refund"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/stock"
)

// Handler связывает HTTP-маршруты с доменными сервисами.
type Handler struct {
	checkout *checkout.Coordinator
	refunds  *refund.Processor
	ledger   *stock.Ledger
	products domain.ProductRepository
	sales    domain.SaleRepository
	timeline domain.TimelineRepository
	logger   *log.Entry
}

// NewHandler создаёт набор HTTP-обработчиков поверх сервисов ядра.
func NewHandler(
	checkoutSvc *checkout.Coordinator,
	refunds *refund.Processor,
	ledger *stock.Ledger,
	products domain.ProductRepository,
	sales domain.SaleRepository,
	timeline domain.TimelineRepository,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Handler{
		checkout: checkoutSvc,
		refunds:  refunds,
		ledger:   ledger,
		products: products,
		sales:    sales,
		timeline: timeline,
		logger:   logger,
	}
}

// CreateSale проводит чек от имени сотрудника из заголовка запроса.
func (h *Handler) CreateSale(c *gin.Context) {
	actorID, err := NewHeaderIdentity(c.Request).ActorID()
	if err != nil {
		writeError(c, err)
		return
	}

	var req createSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sale, err := h.checkout.CreateSale(req.toCheckout(actorID))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSaleResponse(sale))
}

// RefundSale выполняет полный или частичный возврат по чеку.
func (h *Handler) RefundSale(c *gin.Context) {
	actorID, err := NewHeaderIdentity(c.Request).ActorID()
	if err != nil {
		writeError(c, domain.ErrRefundActorRequired)
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sale, err := h.refunds.Refund(c.Param("id"), req.AmountMinor, req.Reason, actorID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// GetSale возвращает чек со всеми позициями.
func (h *Handler) GetSale(c *gin.Context) {
	sale, err := h.sales.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSaleResponse(sale))
}

// GetSaleTimeline возвращает события жизненного цикла чека.
func (h *Handler) GetSaleTimeline(c *gin.Context) {
	saleID := c.Param("id")

	// Отсутствующий чек отличаем от чека без событий.
	if _, err := h.sales.Get(saleID); err != nil {
		writeError(c, err)
		return
	}

	events, err := h.timeline.List(saleID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sale_id": saleID, "events": toTimelineResponse(events)})
}

// AdjustStock выполняет ручную корректировку остатка товара.
func (h *Handler) AdjustStock(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := h.ledger.Adjust(c.Param("id"), req.Qty, domain.StockOp(req.Op))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

// GetProduct возвращает товар с производным статусом остатка.
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.products.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toProductResponse(product))
}

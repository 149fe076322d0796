package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/checkout"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/numbering"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/refund"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/stock"
	"github.com/shopifydevguy1-ops/pos-system/internal/storage/memory"
	"github.com/shopifydevguy1-ops/pos-system/internal/transport/httpapi"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type apiFixture struct {
	router   http.Handler
	products domain.ProductRepository
	sales    domain.SaleRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "httpapi-test")

	clock := fixedClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}

	products := memory.NewProductRepository()
	sales := memory.NewSaleRepository()
	counters := memory.NewCounterRepository()
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()
	idem := memory.NewIdempotencyRepository()

	ledger := stock.NewLedgerWithoutMetrics(products, timeline, logger)
	numbers := numbering.NewGenerator(counters, logger)
	coordinator := checkout.NewCoordinatorWithoutMetrics(
		products, sales, ledger, numbers, outbox, timeline, clock, logger,
	)
	refunds := refund.NewProcessorWithoutMetrics(sales, outbox, timeline, clock, logger)

	handler := httpapi.NewHandler(coordinator, refunds, ledger, products, sales, timeline, logger)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Handler:     handler,
		Idempotency: idem,
		Clock:       clock,
		Logger:      logger,
	})

	return &apiFixture{
		router:   router,
		products: products,
		sales:    sales,
	}
}

func (f *apiFixture) seedProduct(t *testing.T, id string, priceMinor int64, stockCurrent int32) {
	t.Helper()

	err := f.products.Create(domain.Product{
		ID:         id,
		SKU:        "SKU-" + id,
		Name:       "Товар " + id,
		PriceMinor: priceMinor,
		CostMinor:  priceMinor / 2,
		Stock:      domain.Stock{Current: stockCurrent, Minimum: 2, Maximum: 100},
		Active:     true,
	})
	require.NoError(t, err)
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func cashierHeaders() map[string]string {
	return map[string]string{"X-Employee-ID": "emp-1"}
}

func validSaleBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"product_id": "prod-1", "qty": 2, "unit_price_minor": 1000, "tax_minor": 50},
		},
		"payment": map[string]any{
			"method":              "cash",
			"cash_received_minor": 5000,
		},
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateSale_Success(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	rec := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, "SALE-20260831-0001", body["sale_number"])
	require.Equal(t, "completed", body["status"])
	require.Equal(t, float64(2100), body["total_minor"])
	require.Equal(t, float64(2900), body["change_minor"])
	require.Equal(t, "emp-1", body["cashier_id"])

	// Списание остатка видно через каталог.
	product, err := f.products.Get("prod-1")
	require.NoError(t, err)
	require.Equal(t, int32(8), product.Stock.Current)
}

func TestCreateSale_MissingEmployeeHeader(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	rec := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_MalformedJSON(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewReader([]byte(`{"items": [`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Employee-ID", "emp-1")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSale_UnknownProductNotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSale_InsufficientStockConflict(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 1)

	rec := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())

	require.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "SKU-prod-1", body["sku"])
	require.Equal(t, float64(2), body["requested"])
	require.Equal(t, float64(1), body["available"])
}

func TestCreateSale_IdempotentReplay(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	headers := cashierHeaders()
	headers["Idempotency-Key"] = "checkout-1"

	first := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())

	// Повтор не проводит второй чек и не списывает остаток ещё раз.
	product, err := f.products.Get("prod-1")
	require.NoError(t, err)
	require.Equal(t, int32(8), product.Stock.Current)
}

func TestCreateSale_IdempotencyHashMismatch(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	headers := cashierHeaders()
	headers["Idempotency-Key"] = "checkout-2"

	first := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), headers)
	require.Equal(t, http.StatusCreated, first.Code)

	other := validSaleBody()
	other["notes"] = "другое тело запроса"

	second := f.do(t, http.MethodPost, "/api/v1/sales", other, headers)
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestGetSale_NotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/sales/missing", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefundSale_FullLifecycle(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	created := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())
	require.Equal(t, http.StatusCreated, created.Code)
	saleID := decodeBody(t, created)["id"].(string)

	refundBody := map[string]any{"amount_minor": 2100, "reason": "возврат товара"}
	rec := f.do(t, http.MethodPost, "/api/v1/sales/"+saleID+"/refund", refundBody, cashierHeaders())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, "refunded", body["status"])
	require.Equal(t, float64(2100), body["refunded_minor"])
	require.Equal(t, "emp-1", body["refunded_by"])
	require.NotEmpty(t, body["refunded_at"])
}

func TestRefundSale_ExceedsBalanceConflict(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	created := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())
	require.Equal(t, http.StatusCreated, created.Code)
	saleID := decodeBody(t, created)["id"].(string)

	refundBody := map[string]any{"amount_minor": 99999}
	rec := f.do(t, http.MethodPost, "/api/v1/sales/"+saleID+"/refund", refundBody, cashierHeaders())

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefundSale_MissingEmployeeHeader(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	refundBody := map[string]any{"amount_minor": 100}
	rec := f.do(t, http.MethodPost, "/api/v1/sales/any/refund", refundBody, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSaleTimeline(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	created := f.do(t, http.MethodPost, "/api/v1/sales", validSaleBody(), cashierHeaders())
	require.Equal(t, http.StatusCreated, created.Code)
	saleID := decodeBody(t, created)["id"].(string)

	rec := f.do(t, http.MethodGet, "/api/v1/sales/"+saleID+"/timeline", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, saleID, body["sale_id"])

	events, ok := body["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 1)

	event := events[0].(map[string]any)
	require.Equal(t, "SaleCompleted", event["type"])
}

func TestGetSaleTimeline_MissingSale(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/sales/missing/timeline", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdjustStock(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	rec := f.do(t, http.MethodPost, "/api/v1/products/prod-1/stock/adjust",
		map[string]any{"op": "add", "qty": 5}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	require.Equal(t, float64(15), body["stock_current"])
	require.Equal(t, "in_stock", body["stock_status"])
}

func TestAdjustStock_InvalidOp(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 10)

	rec := f.do(t, http.MethodPost, "/api/v1/products/prod-1/stock/adjust",
		map[string]any{"op": "increment", "qty": 5}, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProduct(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)
	f.seedProduct(t, "prod-1", 1000, 1)

	rec := f.do(t, http.MethodGet, "/api/v1/products/prod-1", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "SKU-prod-1", body["sku"])
	require.Equal(t, "low_stock", body["stock_status"])
}

func TestGetProduct_NotFound(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/products/missing", nil, nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

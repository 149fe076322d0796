package httpapi

import (
	"time"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
	"github.com/shopifydevguy1-ops/pos-system/internal/service/checkout"
)

// saleItemRequest — позиция входящего чекаута.
type saleItemRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	Qty            int32  `json:"qty" binding:"required"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	DiscountMinor  int64  `json:"discount_minor"`
	TaxMinor       int64  `json:"tax_minor"`
}

type paymentRequest struct {
	Method            string `json:"method" binding:"required"`
	CashReceivedMinor int64  `json:"cash_received_minor"`
	CardLast4         string `json:"card_last4"`
	TransactionID     string `json:"transaction_id"`
}

type createSaleRequest struct {
	Items         []saleItemRequest `json:"items" binding:"required"`
	Payment       paymentRequest    `json:"payment" binding:"required"`
	CustomerID    string            `json:"customer_id"`
	DiscountMinor int64             `json:"discount_minor"`
	Notes         string            `json:"notes"`
}

func (r createSaleRequest) toCheckout(cashierID string) checkout.Request {
	items := make([]checkout.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, checkout.ItemRequest{
			ProductID:      item.ProductID,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			DiscountMinor:  item.DiscountMinor,
			TaxMinor:       item.TaxMinor,
		})
	}
	return checkout.Request{
		Items: items,
		Payment: checkout.PaymentInfo{
			Method:            domain.PaymentMethod(r.Payment.Method),
			CashReceivedMinor: r.Payment.CashReceivedMinor,
			CardLast4:         r.Payment.CardLast4,
			TransactionID:     r.Payment.TransactionID,
		},
		CashierID:     cashierID,
		CustomerID:    r.CustomerID,
		DiscountMinor: r.DiscountMinor,
		Notes:         r.Notes,
	}
}

type refundRequest struct {
	AmountMinor int64  `json:"amount_minor" binding:"required"`
	Reason      string `json:"reason"`
}

type adjustStockRequest struct {
	Op  string `json:"op" binding:"required"`
	Qty int32  `json:"qty"`
}

type saleItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	SKU            string `json:"sku"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	DiscountMinor  int64  `json:"discount_minor"`
	TaxMinor       int64  `json:"tax_minor"`
	LineTotalMinor int64  `json:"line_total_minor"`
}

type saleResponse struct {
	ID                string             `json:"id"`
	SaleNumber        string             `json:"sale_number"`
	CustomerID        string             `json:"customer_id,omitempty"`
	CashierID         string             `json:"cashier_id"`
	Items             []saleItemResponse `json:"items"`
	SubtotalMinor     int64              `json:"subtotal_minor"`
	DiscountMinor     int64              `json:"discount_minor"`
	TaxMinor          int64              `json:"tax_minor"`
	TotalMinor        int64              `json:"total_minor"`
	PaymentMethod     string             `json:"payment_method"`
	CashReceivedMinor int64              `json:"cash_received_minor,omitempty"`
	ChangeMinor       int64              `json:"change_minor,omitempty"`
	CardLast4         string             `json:"card_last4,omitempty"`
	TransactionID     string             `json:"transaction_id,omitempty"`
	Status            string             `json:"status"`
	RefundedMinor     int64              `json:"refunded_minor"`
	RefundedBy        string             `json:"refunded_by,omitempty"`
	RefundReason      string             `json:"refund_reason,omitempty"`
	RefundedAt        *time.Time         `json:"refunded_at,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	Version           int64              `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func toSaleResponse(sale domain.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, saleItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			SKU:            item.SKU,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			DiscountMinor:  item.DiscountMinor,
			TaxMinor:       item.TaxMinor,
			LineTotalMinor: item.LineTotalMinor,
		})
	}

	resp := saleResponse{
		ID:                sale.ID,
		SaleNumber:        sale.SaleNumber,
		CustomerID:        sale.CustomerID,
		CashierID:         sale.CashierID,
		Items:             items,
		SubtotalMinor:     sale.SubtotalMinor,
		DiscountMinor:     sale.DiscountMinor,
		TaxMinor:          sale.TaxMinor,
		TotalMinor:        sale.TotalMinor,
		PaymentMethod:     string(sale.PaymentMethod),
		CashReceivedMinor: sale.PaymentDetails.CashReceivedMinor,
		ChangeMinor:       sale.PaymentDetails.ChangeMinor,
		CardLast4:         sale.PaymentDetails.CardLast4,
		TransactionID:     sale.PaymentDetails.TransactionID,
		Status:            string(sale.Status),
		RefundedMinor:     sale.RefundedMinor,
		RefundedBy:        sale.RefundedBy,
		RefundReason:      sale.RefundReason,
		Notes:             sale.Notes,
		Version:           sale.Version,
		CreatedAt:         sale.CreatedAt,
		UpdatedAt:         sale.UpdatedAt,
	}
	if !sale.RefundedAt.IsZero() {
		refundedAt := sale.RefundedAt
		resp.RefundedAt = &refundedAt
	}

	return resp
}

type productResponse struct {
	ID           string    `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	PriceMinor   int64     `json:"price_minor"`
	CostMinor    int64     `json:"cost_minor"`
	StockCurrent int32     `json:"stock_current"`
	StockMinimum int32     `json:"stock_minimum"`
	StockMaximum int32     `json:"stock_maximum"`
	StockStatus  string    `json:"stock_status"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toProductResponse(product domain.Product) productResponse {
	return productResponse{
		ID:           product.ID,
		SKU:          product.SKU,
		Name:         product.Name,
		PriceMinor:   product.PriceMinor,
		CostMinor:    product.CostMinor,
		StockCurrent: product.Stock.Current,
		StockMinimum: product.Stock.Minimum,
		StockMaximum: product.Stock.Maximum,
		StockStatus:  string(product.StockStatus()),
		Active:       product.Active,
		CreatedAt:    product.CreatedAt,
		UpdatedAt:    product.UpdatedAt,
	}
}

type timelineEventResponse struct {
	SaleID   string    `json:"sale_id"`
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toTimelineResponse(events []domain.TimelineEvent) []timelineEventResponse {
	result := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		result = append(result, timelineEventResponse{
			SaleID:   event.SaleID,
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}
	return result
}

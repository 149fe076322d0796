package domain

import "time"

// Типы событий аудита. Движения остатков привязываются к чеку, если
// возникли в рамках чекаута, иначе хранятся под идентификатором товара.
const (
	TimelineSaleCompleted  = "SaleCompleted"
	TimelineSaleRefunded   = "SaleRefunded"
	TimelineCheckoutFailed = "CheckoutFailed"
	TimelineStockAdjusted  = "StockAdjusted"
)

// TimelineEvent описывает событие в аудит-журнале чека.
type TimelineEvent struct {
	SaleID   string
	Type     string
	Reason   string
	Occurred time.Time
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

// validationErrs — ошибки входных данных, всегда 400.
var validationErrs = []error{
	domain.ErrCashierRequired,
	domain.ErrItemsRequired,
	domain.ErrItemQtyInvalid,
	domain.ErrItemPriceInvalid,
	domain.ErrItemDiscountInvalid,
	domain.ErrItemTaxInvalid,
	domain.ErrDiscountInvalid,
	domain.ErrPaymentMethodInvalid,
	domain.ErrAmountMismatch,
	domain.ErrRefundAmountInvalid,
	domain.ErrRefundActorRequired,
	domain.ErrStockOpInvalid,
	domain.ErrProductSKURequired,
	domain.ErrIdempotencyKeyRequired,
}

// notFoundErrs — отсутствие сущности, 404.
var notFoundErrs = []error{
	domain.ErrProductNotFound,
	domain.ErrSaleNotFound,
}

// conflictErrs — конфликт с текущим состоянием, 409.
var conflictErrs = []error{
	domain.ErrInsufficientStock,
	domain.ErrProductInactive,
	domain.ErrProductAlreadyExists,
	domain.ErrSaleNotRefundable,
	domain.ErrRefundExceedsBalance,
	domain.ErrSaleVersionConflict,
	domain.ErrSaleNumberCollision,
	domain.ErrIdempotencyHashMismatch,
	domain.ErrIdempotencyInFlight,
}

// statusForError переводит доменную ошибку в HTTP-статус.
// Любая нераспознанная ошибка трактуется как сбой хранилища.
func statusForError(err error) int {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range notFoundErrs {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflictErrs {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusForError(err)

	body := gin.H{"error": err.Error()}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		body["sku"] = insufficient.SKU
		body["requested"] = insufficient.Requested
		body["available"] = insufficient.Available
	}

	c.AbortWithStatusJSON(status, body)
}

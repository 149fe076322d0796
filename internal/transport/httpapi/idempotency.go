package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	defaultIdempotencyTTL = 24 * time.Hour
)

// bodyRecorder дублирует ответ в буфер, чтобы сохранить его в записи
// idempotency и вернуть при повторе.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware защищает чекаут от повторной обработки одного
// запроса. Ключ опционален: без заголовка запрос проходит как обычный.
func IdempotencyMiddleware(repo domain.IdempotencyRepository, clock domain.Clock, logger *log.Entry) gin.HandlerFunc {
	if logger == nil {
		logger = log.WithField("component", "idempotency")
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyHeader))
		if key == "" {
			c.Next()
			return
		}

		bodyRaw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyRaw))

		sum := sha256.Sum256(bodyRaw)
		requestHash := hex.EncodeToString(sum[:])

		record, err := repo.CreateProcessing(key, requestHash, clock.Now().Add(defaultIdempotencyTTL))
		switch {
		case err == nil:
			// Новый ключ: обрабатываем запрос и запоминаем ответ.
		case errors.Is(err, domain.ErrIdempotencyHashMismatch):
			writeError(c, domain.ErrIdempotencyHashMismatch)
			return
		case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
			if record.Status == domain.IdempotencyStatusProcessing {
				writeError(c, domain.ErrIdempotencyInFlight)
				return
			}
			contentType := "application/json"
			c.Data(record.HTTPStatus, contentType, record.ResponseBody)
			c.Abort()
			return
		default:
			writeError(c, err)
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder

		c.Next()

		status := recorder.Status()
		responseBody := recorder.body.Bytes()

		var markErr error
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			markErr = repo.MarkDone(key, responseBody, status)
		} else {
			markErr = repo.MarkFailed(key, responseBody, status)
		}
		if markErr != nil {
			logger.WithError(markErr).WithField("key", key).Warn("failed to finalize idempotency record")
		}
	}
}

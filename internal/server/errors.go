package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthpredict/internal/logger"
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/report"
	"github.com/Skufu/healthpredict/internal/service"
)

// badRequest marks malformed input that never reached reconciliation.
type badRequest struct {
	msg string
	err error
}

func (e *badRequest) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequest) Unwrap() error { return e.err }

func invalid(msg string, err error) error {
	return &badRequest{msg: msg, err: err}
}

// fail counts malformed input against the route's model and responds.
func (h *handlers) fail(c *gin.Context, err error) {
	var bad *badRequest
	if errors.As(err, &bad) {
		h.svc.ObserveBadRequest(c.Param("model"))
	}
	respondError(c, err)
}

func respondError(c *gin.Context, err error) {
	var (
		tooLarge *http.MaxBytesError
		mismatch *reconcile.SchemaMismatchError
		bad      *badRequest
	)
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large", "limit": tooLarge.Limit})
	case errors.As(err, &mismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "schema_mismatch",
			"feature":   mismatch.Feature,
			"canonical": mismatch.Canonical,
			"row":       mismatch.Row,
			"message":   mismatch.Error(),
		})
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload", "message": bad.Error()})
	case errors.Is(err, service.ErrUnknownModel):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_model", "message": err.Error()})
	case errors.Is(err, service.ErrNoStore), errors.Is(err, report.ErrRendererUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "message": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

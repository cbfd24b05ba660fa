package handlers

import (
	"errors"
	"net/http"

	apperrors "tikiti/internal/errors"

	"github.com/gin-gonic/gin"
)

// PaymentWebhook receives signed processor callbacks
// POST /api/webhooks/payments
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	// The signature covers the exact bytes on the wire, so the body must not
	// be re-parsed before verification
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": "failed to read body"})
		return
	}

	signature := c.GetHeader("X-Signature")
	if err := h.services.Webhooks.HandleEvent(c.Request.Context(), body, signature); err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrNotFound) {
			respondError(c, err)
			return
		}
		// Anything else is either a malformed payload or a transient failure
		// the processor should retry
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

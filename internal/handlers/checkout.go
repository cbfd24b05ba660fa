package handlers

import (
	"net/http"

	"tikiti/internal/models"

	"github.com/gin-gonic/gin"
)

// CreateCheckout starts a ticket purchase and returns the hosted checkout URL
// POST /api/checkout
func (h *Handlers) CreateCheckout(c *gin.Context) {
	var req models.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	resp, err := h.services.Checkout.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// CancelCheckout aborts an unpaid purchase
// POST /api/checkout/cancel
func (h *Handlers) CancelCheckout(c *gin.Context) {
	var req models.CancelCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "message": err.Error()})
		return
	}

	if err := h.services.Checkout.Cancel(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

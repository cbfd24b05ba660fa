package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SweepPayouts settles organizer payouts for concluded events
// POST /api/sweeps/payouts
func (h *Handlers) SweepPayouts(c *gin.Context) {
	resp, err := h.services.Payouts.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SweepExpiry retires stale tickets of long-ended events
// POST /api/sweeps/expiry
func (h *Handlers) SweepExpiry(c *gin.Context) {
	resp, err := h.services.Expiry.Sweep(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

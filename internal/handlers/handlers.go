package handlers

import (
	"errors"
	"net/http"

	apperrors "tikiti/internal/errors"
	"tikiti/internal/service"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP handlers over the domain services
type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps a domain error to an HTTP status with a machine-readable
// code
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrSoldOut):
		status, code = http.StatusConflict, "sold_out"
	case errors.Is(err, apperrors.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, apperrors.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, apperrors.ErrUpstreamFailure):
		status, code = http.StatusBadGateway, "upstream_failure"
	}

	c.Error(err)
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}

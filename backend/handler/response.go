package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/imobgestao/locacoes/backend/lifecycle"
	"github.com/imobgestao/locacoes/backend/pkg/logger"
	"github.com/imobgestao/locacoes/backend/service"
)

// respondError maps domain errors to HTTP responses. Unknown errors are
// logged and reported as 500.
func respondError(c *gin.Context, err error) {
	var dateErr *lifecycle.InvalidDateError

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.As(err, &dateErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": dateErr.Error(), "field": dateErr.Field})
	case errors.Is(err, service.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateBoleto), errors.Is(err, service.ErrBoletoState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// respondBindError reports which fields failed validation
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
}

package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"folio-api/internal/service"
)

// statusFor traduce un error del servicio a su codigo HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidPurpose):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrEmailSendFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde con el mensaje fijo del tipo de error. Los errores no
// clasificados se registran y se ocultan tras fallback.
func writeError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := statusFor(err)
	message := err.Error()
	var svcErr *service.Error
	switch {
	case errors.As(err, &svcErr):
		message = svcErr.Message
	case status == http.StatusServiceUnavailable:
		message = "email delivery unavailable"
	case status == http.StatusInternalServerError:
		logger.Error(fallback, zap.Error(err))
		message = fallback
	}
	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, logger *zap.Logger, what string, err error) {
	logger.Warn("invalid "+what+" request", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}

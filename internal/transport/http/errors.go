package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/core"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindNotAuthenticated:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindValidation:
		return http.StatusUnprocessableEntity
	case core.KindRateLimited:
		return http.StatusTooManyRequests
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a JSON error. Storage failures are logged and
// reported with a generic message.
func respondError(c *gin.Context, logger *zerolog.Logger, err error) {
	kind := core.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("request_id", GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal server error", Code: string(core.KindStorage)})
		return
	}

	msg := err.Error()
	var ce *core.Error
	if errors.As(err, &ce) {
		msg = ce.Message
	}
	logger.Debug().Err(err).Str("kind", string(kind)).Msg("request rejected")
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, Code: string(kind)})
}

// badRequest reports a malformed body or parameter as a validation error.
func badRequest(c *gin.Context, logger *zerolog.Logger, msg string, err error) {
	logger.Debug().Err(err).Msg(msg)
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{Error: msg, Code: string(core.KindValidation)})
}

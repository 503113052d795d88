package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/auth"
	"github.com/vovakirdan/wiremsg/internal/config"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/metrics"
)

const (
	// ContextKeyPrincipal is the context key for storing the authenticated principal.
	ContextKeyPrincipal = "principal"
	// ContextKeyRequestID is the context key for storing the request ID.
	ContextKeyRequestID = "request_id"
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware propagates the caller's X-Request-ID or generates one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestIDMiddleware.
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// AuthMiddleware creates a middleware that resolves the bearer token to a principal.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			respondError(c, logger, core.ErrNotAuthenticated)
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			respondError(c, logger, &core.Error{Kind: core.KindNotAuthenticated, Message: "invalid authorization header format"})
			return
		}

		principal, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				logger.Debug().Err(err).Msg("invalid token")
				respondError(c, logger, &core.Error{Kind: core.KindNotAuthenticated, Message: "invalid token"})
				return
			}
			respondError(c, logger, core.Storage("authenticate", err))
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Next()
	}
}

// RequireAdmin rejects authenticated callers without the admin role.
func RequireAdmin(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok {
			respondError(c, logger, core.ErrNotAuthenticated)
			return
		}
		if !access.IsAdmin(p) {
			respondError(c, logger, core.Forbidden("admin role required"))
			return
		}
		c.Next()
	}
}

// AccessHoursMiddleware rejects requests outside [StartHour, EndHour) local
// server time. A disabled configuration lets everything through.
func AccessHoursMiddleware(hours config.AccessHours, now func() time.Time, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hours.Enabled {
			c.Next()
			return
		}
		h := now().Hour()
		if h < hours.StartHour || h >= hours.EndHour {
			respondError(c, logger, core.Forbidden("access is allowed between %02d:00 and %02d:00", hours.StartHour, hours.EndHour))
			return
		}
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests and records
// request metrics.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		event := logger.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		if p, ok := principalFrom(c); ok {
			event = event.Int64("user_id", p.UserID)
		}
		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("http request")
	}
}

// principalFrom returns the principal stored by AuthMiddleware.
func principalFrom(c *gin.Context) (access.Principal, bool) {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return access.Principal{}, false
	}
	p, ok := v.(access.Principal)
	return p, ok
}

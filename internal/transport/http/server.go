package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/auth"
	"github.com/vovakirdan/wiremsg/internal/config"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
	"github.com/vovakirdan/wiremsg/internal/service/messaging"
	"github.com/vovakirdan/wiremsg/internal/service/users"
)

// Deps holds what the HTTP layer needs from the rest of the application.
type Deps struct {
	Auth      *auth.Service
	Messaging *messaging.Service
	Users     *users.Service
	// AuthLimiter throttles register and login per client address. Optional.
	AuthLimiter *ratelimit.Limiter
	Config      *config.Config
	Logger      *zerolog.Logger
	// Now is the clock for the access-hours gate. Defaults to time.Now.
	Now func() time.Time
}

// NewServer builds an HTTP server with all API routes.
func NewServer(d Deps) *http.Server {
	return &http.Server{
		Addr:              d.Config.Addr,
		Handler:           NewRouter(d),
		ReadHeaderTimeout: d.Config.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := d.Logger

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiHandlers := NewAPIHandlers(d.Auth, logger)
	messageHandlers := NewMessageHandlers(d.Messaging, logger)
	userHandlers := NewUserHandlers(d.Users, logger)

	api := router.Group("/api")
	api.Use(AccessHoursMiddleware(d.Config.AccessHours, d.Now, logger))

	public := api.Group("")
	public.Use(RateLimitMiddleware(d.AuthLimiter, logger))
	public.POST("/register", apiHandlers.Register)
	public.POST("/login", apiHandlers.Login)

	protected := api.Group("")
	protected.Use(AuthMiddleware(d.Auth, logger))
	{
		protected.GET("/conversations", messageHandlers.ListConversations)
		protected.POST("/conversations", messageHandlers.CreateConversation)
		protected.GET("/conversations/:id", messageHandlers.GetConversation)
		protected.GET("/conversations/:id/messages", messageHandlers.ListMessages)
		protected.POST("/conversations/:id/messages", messageHandlers.SendMessage)

		protected.GET("/messages/:id", messageHandlers.GetMessage)
		protected.PUT("/messages/:id", messageHandlers.UpdateMessage)
		protected.DELETE("/messages/:id", messageHandlers.DeleteMessage)
		protected.GET("/messages/:id/history", messageHandlers.MessageHistory)

		protected.GET("/threads", messageHandlers.Threads)

		protected.GET("/notifications", messageHandlers.ListNotifications)
		protected.POST("/notifications/:id/read", messageHandlers.MarkNotificationRead)

		protected.GET("/users/me", userHandlers.Me)
		protected.GET("/users/search", userHandlers.SearchUsers)
	}

	admin := protected.Group("/admin")
	admin.Use(RequireAdmin(logger))
	{
		admin.GET("/users", userHandlers.ListUsers)
		admin.PUT("/users/:id/role", userHandlers.SetRole)
		admin.DELETE("/users/:id", userHandlers.DeleteUser)
	}

	return router
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/auth"
	"github.com/vovakirdan/wiremsg/internal/config"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
	"github.com/vovakirdan/wiremsg/internal/service/messaging"
	"github.com/vovakirdan/wiremsg/internal/service/users"
	"github.com/vovakirdan/wiremsg/internal/store"
	"github.com/vovakirdan/wiremsg/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wiremsg/internal/transport/http"
)

// App wires together storage, services and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	store           store.Store
	redis           *redis.Client
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Initialize database store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		store:           st,
		log:             logger,
	}

	windows, err := a.windowStore(ctx, cfg.RateLimit)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	authService := auth.NewService(st, AuthConfig(cfg))
	messageLimiter := ratelimit.New(windows, cfg.RateLimit.Window, cfg.RateLimit.Max)
	authLimiter := ratelimit.New(prefixed{windows, "auth:"}, cfg.RateLimit.Window, cfg.RateLimit.AuthMax)

	a.server = transporthttp.NewServer(transporthttp.Deps{
		Auth: authService,
		Messaging: messaging.New(st, messageLimiter,
			messaging.WithPageSize(cfg.PageSize),
			messaging.WithLogger(logger),
		),
		Users:       users.New(st, logger),
		AuthLimiter: authLimiter,
		Config:      cfg,
		Logger:      logger,
	})

	logger.Info().
		Str("backend", cfg.RateLimit.Backend).
		Dur("window", messageLimiter.Window()).
		Int("max", messageLimiter.Limit()).
		Msg("rate limiter configured")
	return a, nil
}

// AuthConfig builds the JWT settings from configuration.
func AuthConfig(cfg *config.Config) *auth.JWTConfig {
	return &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
}

// windowStore picks the limiter backend. The redis client is kept for cleanup.
func (a *App) windowStore(ctx context.Context, cfg config.RateLimit) (ratelimit.WindowStore, error) {
	switch cfg.Backend {
	case config.RateLimitRedis:
		client, err := ratelimit.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		a.redis = client
		a.log.Info().Msg("rate limiter using redis")
		return ratelimit.NewRedisStore(client, ""), nil
	default:
		return ratelimit.NewMemoryStore(), nil
	}
}

// prefixed namespaces keys so two limiters can share one window store.
type prefixed struct {
	ratelimit.WindowStore
	prefix string
}

func (p prefixed) Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	return p.WindowStore.Admit(ctx, p.prefix+key, now, window, limit)
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("starting wiremsg server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}

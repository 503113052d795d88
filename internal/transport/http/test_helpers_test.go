package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/auth"
	"github.com/vovakirdan/wiremsg/internal/config"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
	"github.com/vovakirdan/wiremsg/internal/service/messaging"
	"github.com/vovakirdan/wiremsg/internal/service/users"
	"github.com/vovakirdan/wiremsg/internal/store"
	"github.com/vovakirdan/wiremsg/internal/store/sqlite"
)

const testSecret = "test-secret"

// tickingClock advances by one millisecond on every read so message
// timestamps are strictly increasing.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type testServer struct {
	handler http.Handler
	store   *sqlite.SQLiteStore
	auth    *auth.Service
	cfg     *config.Config
}

// newTestServer wires the full router over an in-memory store. mutate may
// adjust the config and deps before the router is built.
func newTestServer(t *testing.T, mutate func(*config.Config, *Deps)) *testServer {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	cfg := config.Default()
	cfg.JWTSecret = testSecret
	cfg.PageSize = 2

	disabledLogger := zerolog.New(nil).Level(zerolog.Disabled)

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.JWTIssuer,
		TTL:    time.Hour,
	})
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit.Window, cfg.RateLimit.Max)
	clock := &tickingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	deps := Deps{
		Auth:      authService,
		Messaging: messaging.New(st, limiter, messaging.WithPageSize(cfg.PageSize), messaging.WithClock(clock.Now)),
		Users:     users.New(st, &disabledLogger),
		Config:    &cfg,
		Logger:    &disabledLogger,
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}

	return &testServer{
		handler: NewRouter(deps),
		store:   st,
		auth:    authService,
		cfg:     &cfg,
	}
}

// register creates a user through the API and returns its id and token.
func (s *testServer) register(t *testing.T, username string) (int64, string) {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d: %s", username, resp.Code, resp.Body.String())
	}
	var out AuthResponse
	decode(t, resp, &out)

	claims, err := s.auth.ValidateToken(out.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	return claims.UserID, out.Token
}

// promote makes a user an admin directly in the store.
func (s *testServer) promote(t *testing.T, id int64) {
	t.Helper()

	if err := s.store.UpdateUserRole(context.Background(), id, store.RoleAdmin); err != nil {
		t.Fatalf("promote user %d: %v", id, err)
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, out any) {
	t.Helper()

	if err := json.Unmarshal(resp.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", resp.Body.String(), err)
	}
}

func expectStatus(t *testing.T, resp *httptest.ResponseRecorder, want int) {
	t.Helper()

	if resp.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.Code, resp.Body.String())
	}
}

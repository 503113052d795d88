// Package ratelimit implements a sliding-window submission limiter whose window
// state lives behind an injected WindowStore.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	// DefaultWindow is the trailing interval counted by the limiter.
	DefaultWindow = time.Minute
	// DefaultLimit is the number of accepted submissions per window.
	DefaultLimit = 5
)

// WindowStore records accepted submission timestamps per client key.
// Admit must, atomically for key, drop timestamps at or before now-window and
// then record now only if fewer than limit remain.
type WindowStore interface {
	Admit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error)
}

// Limiter allows at most limit submissions per key in any trailing window.
type Limiter struct {
	store  WindowStore
	window time.Duration
	limit  int
	now    func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New builds a limiter. Non-positive window or limit fall back to the defaults.
func New(store WindowStore, window time.Duration, limit int, opts ...Option) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	l := &Limiter{
		store:  store,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether a submission for key is accepted and records it if so.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := l.store.Admit(ctx, key, l.now(), l.window, l.limit)
	if err != nil {
		return false, fmt.Errorf("rate limit %q: %w", key, err)
	}
	return ok, nil
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Limit returns the configured per-window cap.
func (l *Limiter) Limit() int {
	return l.limit
}

// ClientKey names the window for a caller: the user id when authenticated,
// otherwise the remote address.
func ClientKey(userID int64, addr string) string {
	if userID > 0 {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "ip:" + addr
}

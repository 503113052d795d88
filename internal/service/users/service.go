// Package users provides the user directory and admin user management.
package users

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/store"
)

// Service provides user lookups and admin operations.
type Service struct {
	store store.UserStore
	log   *zerolog.Logger
}

// New creates a user service. A nil logger disables logging.
func New(st store.UserStore, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{store: st, log: logger}
}

// Me returns the caller's own user record.
func (s *Service) Me(ctx context.Context, p access.Principal) (*store.User, error) {
	return s.get(ctx, p.UserID)
}

// Search finds users whose username contains query.
func (s *Service) Search(ctx context.Context, query string) ([]*store.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.Validation("search query is required")
	}
	users, err := s.store.SearchUsers(ctx, query)
	if err != nil {
		return nil, core.Storage("search users", err)
	}
	return users, nil
}

// List returns every user. Admin only.
func (s *Service) List(ctx context.Context, p access.Principal) ([]*store.User, error) {
	if !access.IsAdmin(p) {
		return nil, core.Forbidden("admin role required")
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, core.Storage("list users", err)
	}
	return users, nil
}

// SetRole changes a user's role. Admin only; admins cannot demote themselves.
func (s *Service) SetRole(ctx context.Context, p access.Principal, id int64, role store.Role) (*store.User, error) {
	if !access.IsAdmin(p) {
		return nil, core.Forbidden("admin role required")
	}
	if !role.Valid() {
		return nil, core.Validation("unknown role %q", role)
	}
	if id == p.UserID && role != store.RoleAdmin {
		return nil, core.Validation("admins cannot demote themselves")
	}

	if err := s.store.UpdateUserRole(ctx, id, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user %d not found", id)
		}
		return nil, core.Storage("update role", err)
	}

	s.log.Info().Int64("admin_id", p.UserID).Int64("user_id", id).Str("role", string(role)).Msg("user role changed")
	return s.get(ctx, id)
}

// Delete removes a user with their messages and notifications. Conversations
// left with fewer than two participants are removed too. Admin only.
func (s *Service) Delete(ctx context.Context, p access.Principal, id int64) error {
	if !access.IsAdmin(p) {
		return core.Forbidden("admin role required")
	}
	if id == p.UserID {
		return core.Validation("admins cannot delete themselves")
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("user %d not found", id)
		}
		return core.Storage("delete user", err)
	}

	s.log.Info().Int64("admin_id", p.UserID).Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *Service) get(ctx context.Context, id int64) (*store.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("user %d not found", id)
		}
		return nil, core.Storage("get user", err)
	}
	return user, nil
}

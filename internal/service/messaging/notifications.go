package messaging

import (
	"context"
	"errors"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/store"
)

// ListNotifications returns the caller's notifications, newest first.
func (s *Service) ListNotifications(ctx context.Context, p access.Principal, unreadOnly bool) ([]*store.Notification, error) {
	items, err := s.store.ListNotifications(ctx, p.UserID, unreadOnly)
	if err != nil {
		return nil, core.Storage("list notifications", err)
	}
	return items, nil
}

// MarkNotificationRead acknowledges one of the caller's notifications. A
// notification owned by someone else is reported as not found.
func (s *Service) MarkNotificationRead(ctx context.Context, p access.Principal, id int64) error {
	if err := s.store.MarkNotificationRead(ctx, id, p.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("notification %d not found", id)
		}
		return core.Storage("mark notification read", err)
	}
	return nil
}

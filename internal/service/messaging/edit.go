package messaging

import (
	"context"
	"errors"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/metrics"
	"github.com/vovakirdan/wiremsg/internal/store"
)

// errEditConflict aborts the edit transaction when the compare-and-set loses.
var errEditConflict = errors.New("message changed concurrently")

// UpdateMessage replaces the body of a message sent by the caller. A changed
// body appends one history entry holding the previous body and marks the
// message edited, in the same transaction. An identical body changes nothing.
func (s *Service) UpdateMessage(ctx context.Context, p access.Principal, id int64, body string) (*store.Message, error) {
	msg, conv, err := s.messageFor(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutateMessage(p, msg, conv) {
		return nil, core.Forbidden("only the sender may edit message %d", id)
	}
	body, err = validateBody(body)
	if err != nil {
		return nil, err
	}

	var updated *store.Message
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.GetMessage(ctx, id)
		if err != nil {
			return err
		}
		if !access.CanMutateMessage(p, current, conv) {
			return core.Forbidden("only the sender may edit message %d", id)
		}
		if current.Body == body {
			updated = current
			return nil
		}

		ok, err := tx.UpdateMessageBody(ctx, id, current.Body, body)
		if err != nil {
			return err
		}
		if !ok {
			return errEditConflict
		}
		entry := &store.MessageHistory{
			MessageID: id,
			OldBody:   current.Body,
			EditedBy:  p.UserID,
			EditedAt:  s.clock(),
		}
		if err := tx.InsertHistory(ctx, entry); err != nil {
			return err
		}

		current.Body = body
		current.Edited = true
		updated = current
		metrics.MessageEdits.Inc()
		return nil
	})
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, errEditConflict):
		metrics.EditConflicts.Inc()
		return nil, core.Conflict("message %d was modified concurrently", id)
	case errors.Is(err, store.ErrNotFound):
		return nil, core.NotFound("message %d not found", id)
	case errors.Is(err, core.ErrForbidden):
		return nil, err
	default:
		return nil, core.Storage("update message", err)
	}
}

// History lists the edit history of a message the caller may read, newest first.
func (s *Service) History(ctx context.Context, p access.Principal, id int64) ([]*store.MessageHistory, error) {
	if _, _, err := s.messageFor(ctx, p, id); err != nil {
		return nil, err
	}
	entries, err := s.store.ListHistory(ctx, id)
	if err != nil {
		return nil, core.Storage("list history", err)
	}
	return entries, nil
}

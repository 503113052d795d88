package messaging

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/metrics"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
	"github.com/vovakirdan/wiremsg/internal/store"
	"github.com/vovakirdan/wiremsg/internal/thread"
)

// SendInput describes a new message.
type SendInput struct {
	ConversationID int64
	Body           string
	ParentID       *int64
	ReceiverID     *int64
	// ClientAddr is used as the rate-limit key when the caller has no user id.
	ClientAddr string
}

// Page is one page of a message listing.
type Page struct {
	Count    int
	Page     int
	PageSize int
	Results  []*store.Message
}

func validateBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", core.Validation("message body is required")
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", core.Validation("message body exceeds %d characters", MaxBodyLength)
	}
	return body, nil
}

// ListMessages returns one page of a conversation's messages, newest first.
// Membership is checked before the paging arguments. Page numbers start at 1; a page past the end is NotFound unless it is the
// first page.
func (s *Service) ListMessages(ctx context.Context, p access.Principal, conversationID int64, filter store.MessageFilter, page int) (*Page, error) {
	if _, err := s.conversationFor(ctx, p, conversationID); err != nil {
		return nil, err
	}
	if page < 1 {
		return nil, core.Validation("page must be at least 1")
	}
	if filter.Since != nil && filter.Until != nil && filter.Until.Before(*filter.Since) {
		return nil, core.Validation("until must not be before since")
	}

	count, err := s.store.CountMessages(ctx, conversationID, filter)
	if err != nil {
		return nil, core.Storage("count messages", err)
	}
	offset := (page - 1) * s.pageSize
	if page > 1 && offset >= count {
		return nil, core.NotFound("page %d out of range", page)
	}

	messages, err := s.store.ListMessages(ctx, conversationID, filter, s.pageSize, offset)
	if err != nil {
		return nil, core.Storage("list messages", err)
	}
	return &Page{Count: count, Page: page, PageSize: s.pageSize, Results: messages}, nil
}

// GetMessage returns a message the caller may read.
func (s *Service) GetMessage(ctx context.Context, p access.Principal, id int64) (*store.Message, error) {
	msg, _, err := s.messageFor(ctx, p, id)
	return msg, err
}

// SendMessage validates, rate limits and persists a message together with the
// notifications for its recipients.
func (s *Service) SendMessage(ctx context.Context, p access.Principal, in SendInput) (*store.Message, error) {
	conv, err := s.conversationFor(ctx, p, in.ConversationID)
	if err != nil {
		return nil, err
	}
	body, err := validateBody(in.Body)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	msg := &store.Message{
		ConversationID: conv.ID,
		SenderID:       p.UserID,
		ParentID:       in.ParentID,
		Body:           body,
		SentAt:         now,
	}

	if in.ParentID != nil {
		receiver, err := s.replyReceiver(ctx, p, conv, *in.ParentID, in.ReceiverID, msg)
		if err != nil {
			return nil, err
		}
		msg.ReceiverID = receiver
	} else {
		receiver, err := rootReceiver(p, conv, in.ReceiverID)
		if err != nil {
			return nil, err
		}
		msg.ReceiverID = receiver
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, ratelimit.ClientKey(p.UserID, in.ClientAddr))
		if err != nil {
			return nil, core.Storage("rate limit", err)
		}
		if !ok {
			metrics.RateLimited.Inc()
			return nil, core.RateLimited("at most %d messages per %s", s.limiter.Limit(), s.limiter.Window())
		}
	}

	recipients := notificationRecipients(p, conv, msg.ReceiverID)
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}
		for _, userID := range recipients {
			n := &store.Notification{UserID: userID, MessageID: msg.ID, CreatedAt: now}
			if err := tx.InsertNotification(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, core.Storage("send message", err)
	}

	metrics.RecordMessageSent(msg.ParentID != nil)
	s.log.Debug().
		Int64("message_id", msg.ID).
		Int64("conversation_id", conv.ID).
		Int64("sender_id", p.UserID).
		Int("notified", len(recipients)).
		Msg("message sent")
	return msg, nil
}

// replyReceiver checks the parent of a reply and routes the reply to the other
// side of the parent's exchange.
func (s *Service) replyReceiver(ctx context.Context, p access.Principal, conv *store.Conversation, parentID int64, requested *int64, msg *store.Message) (*int64, error) {
	parent, err := s.store.GetMessage(ctx, parentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.Validation("parent message %d not found", parentID)
		}
		return nil, core.Storage("get parent message", err)
	}
	if parent.ConversationID != conv.ID {
		return nil, core.Validation("parent message %d belongs to another conversation", parentID)
	}
	if !parent.SentAt.Before(msg.SentAt) {
		return nil, core.Validation("parent message %d is not older than the reply", parentID)
	}

	receiver, ok := access.RouteReply(p.UserID, parent)
	if !ok {
		return nil, core.Forbidden("user %d is not part of the exchange of message %d", p.UserID, parentID)
	}
	if requested != nil && (receiver == nil || *receiver != *requested) {
		return nil, core.Validation("receiver_id does not match the reply routing")
	}
	return receiver, nil
}

// rootReceiver resolves the receiver of a message without a parent.
func rootReceiver(p access.Principal, conv *store.Conversation, requested *int64) (*int64, error) {
	if requested != nil {
		if *requested == p.UserID || !conv.HasParticipant(*requested) {
			return nil, core.Validation("receiver %d is not another participant", *requested)
		}
		r := *requested
		return &r, nil
	}
	if len(conv.Participants) == 2 {
		for _, id := range conv.Participants {
			if id != p.UserID {
				other := id
				return &other, nil
			}
		}
	}
	return nil, nil
}

// notificationRecipients is the receiver, or every other participant for a
// conversation-wide message.
func notificationRecipients(p access.Principal, conv *store.Conversation, receiver *int64) []int64 {
	if receiver != nil {
		return []int64{*receiver}
	}
	out := make([]int64, 0, len(conv.Participants))
	for _, id := range conv.Participants {
		if id != p.UserID {
			out = append(out, id)
		}
	}
	return out
}

// DeleteMessage removes a message sent by the caller. Its replies, history and
// notifications go with it.
func (s *Service) DeleteMessage(ctx context.Context, p access.Principal, id int64) error {
	msg, conv, err := s.messageFor(ctx, p, id)
	if err != nil {
		return err
	}
	if !access.CanMutateMessage(p, msg, conv) {
		return core.Forbidden("only the sender may delete message %d", id)
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.DeleteMessage(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("message %d not found", id)
		}
		return core.Storage("delete message", err)
	}
	return nil
}

// Threads assembles the reply forest of every conversation the caller
// participates in, or of one conversation when conversationID is set.
func (s *Service) Threads(ctx context.Context, p access.Principal, conversationID *int64) (thread.Forest, error) {
	if conversationID != nil {
		if _, err := s.conversationFor(ctx, p, *conversationID); err != nil {
			return nil, err
		}
	}

	messages, err := s.store.ListThreadMessages(ctx, p.UserID, conversationID)
	if err != nil {
		return nil, core.Storage("list thread messages", err)
	}
	metrics.ThreadBuildSize.Observe(float64(len(messages)))
	return thread.Build(messages), nil
}

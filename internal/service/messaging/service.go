// Package messaging implements conversation and message operations on top of
// the store: authorization, validation, rate limiting and the transactional
// writes that belong to each operation.
package messaging

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/access"
	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/ratelimit"
	"github.com/vovakirdan/wiremsg/internal/store"
)

const (
	// DefaultPageSize is the number of messages per listing page.
	DefaultPageSize = 20
	// MaxBodyLength caps a message body, in runes.
	MaxBodyLength = 4000
	// MinParticipants is the smallest allowed conversation.
	MinParticipants = 2
)

// Service provides conversation messaging business logic.
type Service struct {
	store    store.Store
	limiter  *ratelimit.Limiter
	pageSize int
	now      func() time.Time
	log      *zerolog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source used for sent_at and edited_at.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPageSize overrides the listing page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.log = logger
		}
	}
}

// New creates a messaging service.
func New(st store.Store, limiter *ratelimit.Limiter, opts ...Option) *Service {
	nop := zerolog.Nop()
	s := &Service{
		store:    st,
		limiter:  limiter,
		pageSize: DefaultPageSize,
		now:      time.Now,
		log:      &nop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize returns the configured listing page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// ListConversations returns the caller's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, p access.Principal) ([]*store.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, p.UserID)
	if err != nil {
		return nil, core.Storage("list conversations", err)
	}
	return convs, nil
}

// CreateConversation creates a conversation between the caller and
// participantIDs. Duplicates are dropped and the caller is always included.
func (s *Service) CreateConversation(ctx context.Context, p access.Principal, participantIDs []int64) (*store.Conversation, error) {
	ids := make([]int64, 0, len(participantIDs)+1)
	ids = append(ids, p.UserID)
	for _, id := range participantIDs {
		if id <= 0 {
			return nil, core.Validation("participant id %d is invalid", id)
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if len(ids) < MinParticipants {
		return nil, core.Validation("a conversation needs at least %d participants", MinParticipants)
	}

	missing, err := s.store.MissingUsers(ctx, ids)
	if err != nil {
		return nil, core.Storage("check participants", err)
	}
	if len(missing) > 0 {
		return nil, core.Validation("unknown participants: %v", missing)
	}

	conv, err := s.store.CreateConversation(ctx, ids, s.clock())
	if err != nil {
		return nil, core.Storage("create conversation", err)
	}

	s.log.Debug().Int64("conversation_id", conv.ID).Ints64("participants", conv.Participants).Msg("conversation created")
	return conv, nil
}

// GetConversation returns a conversation the caller participates in.
func (s *Service) GetConversation(ctx context.Context, p access.Principal, id int64) (*store.Conversation, error) {
	return s.conversationFor(ctx, p, id)
}

// conversationFor loads a conversation and checks the caller is a participant.
func (s *Service) conversationFor(ctx context.Context, p access.Principal, id int64) (*store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("conversation %d not found", id)
		}
		return nil, core.Storage("get conversation", err)
	}
	if !access.CanAccessConversation(p, conv) {
		return nil, core.Forbidden("not a participant of conversation %d", id)
	}
	return conv, nil
}

// messageFor loads a message and its conversation and checks read access.
func (s *Service) messageFor(ctx context.Context, p access.Principal, id int64) (*store.Message, *store.Conversation, error) {
	msg, err := s.store.GetMessage(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, core.NotFound("message %d not found", id)
		}
		return nil, nil, core.Storage("get message", err)
	}
	conv, err := s.store.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return nil, nil, core.Storage("get conversation", err)
	}
	if !access.CanReadMessage(p, msg, conv) {
		return nil, nil, core.Forbidden("not a participant of conversation %d", conv.ID)
	}
	return msg, conv, nil
}

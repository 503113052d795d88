package http

import (
	"time"

	"github.com/vovakirdan/wiremsg/internal/service/messaging"
	"github.com/vovakirdan/wiremsg/internal/store"
	"github.com/vovakirdan/wiremsg/internal/thread"
)

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID           int64   `json:"id"`
	Participants []int64 `json:"participants"`
	CreatedAt    string  `json:"created_at"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	ReceiverID     *int64 `json:"receiver_id"`
	ParentID       *int64 `json:"parent_id"`
	Body           string `json:"body"`
	SentAt         string `json:"sent_at"`
	Edited         bool   `json:"edited"`
}

// PageResponse is one page of a message listing.
type PageResponse struct {
	Count    int               `json:"count"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Results  []MessageResponse `json:"results"`
}

// ThreadNodeResponse is a message with its nested replies.
type ThreadNodeResponse struct {
	MessageResponse
	Replies []ThreadNodeResponse `json:"replies"`
}

// HistoryResponse represents a message edit history entry.
type HistoryResponse struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"message_id"`
	OldBody   string `json:"old_body"`
	EditedBy  int64  `json:"edited_by"`
	EditedAt  string `json:"edited_at"`
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID        int64  `json:"id"`
	MessageID int64  `json:"message_id"`
	IsRead    bool   `json:"is_read"`
	CreatedAt string `json:"created_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toUserResponse(u *store.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toUserResponses(users []*store.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

func toConversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           c.ID,
		Participants: c.Participants,
		CreatedAt:    formatTime(c.CreatedAt),
	}
}

func toMessageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ParentID:       m.ParentID,
		Body:           m.Body,
		SentAt:         formatTime(m.SentAt),
		Edited:         m.Edited,
	}
}

func toPageResponse(p *messaging.Page) PageResponse {
	results := make([]MessageResponse, 0, len(p.Results))
	for _, m := range p.Results {
		results = append(results, toMessageResponse(m))
	}
	return PageResponse{
		Count:    p.Count,
		Page:     p.Page,
		PageSize: p.PageSize,
		Results:  results,
	}
}

func toThreadResponse(nodes []*thread.Node) []ThreadNodeResponse {
	out := make([]ThreadNodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, ThreadNodeResponse{
			MessageResponse: toMessageResponse(n.Message),
			Replies:         toThreadResponse(n.Replies),
		})
	}
	return out
}

func toHistoryResponses(entries []*store.MessageHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, HistoryResponse{
			ID:        h.ID,
			MessageID: h.MessageID,
			OldBody:   h.OldBody,
			EditedBy:  h.EditedBy,
			EditedAt:  formatTime(h.EditedAt),
		})
	}
	return out
}

func toNotificationResponses(items []*store.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			MessageID: n.MessageID,
			IsRead:    n.IsRead,
			CreatedAt: formatTime(n.CreatedAt),
		})
	}
	return out
}

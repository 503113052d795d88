package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/core"
	"github.com/vovakirdan/wiremsg/internal/service/messaging"
	"github.com/vovakirdan/wiremsg/internal/store"
)

// MessageHandlers provides HTTP handlers for conversations, messages,
// threads and notifications.
type MessageHandlers struct {
	service *messaging.Service
	log     *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(service *messaging.Service, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		service: service,
		log:     logger,
	}
}

// CreateConversationRequest represents the create conversation request body.
type CreateConversationRequest struct {
	ParticipantIDs []int64 `json:"participant_ids"`
}

// SendMessageRequest represents the send message request body.
type SendMessageRequest struct {
	Body       string `json:"body"`
	ParentID   *int64 `json:"parent_id"`
	ReceiverID *int64 `json:"receiver_id"`
}

// UpdateMessageRequest represents the update message request body.
type UpdateMessageRequest struct {
	Body string `json:"body"`
}

func parseID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validation("%s must be a positive integer", name)
	}
	return id, nil
}

func parseQueryID(c *gin.Context, name string) (*int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, core.Validation("%s must be a positive integer", name)
	}
	return &id, nil
}

// parseQueryTime accepts RFC 3339 timestamps or plain dates. With endOfDay
// set, a plain date covers the whole day instead of ending at its midnight.
func parseQueryTime(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &t, nil
	}
	return nil, core.Validation("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
}

func parsePage(c *gin.Context) (int, error) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.Validation("page must be an integer")
	}
	return page, nil
}

// ListConversations handles listing the caller's conversations.
// GET /api/conversations
func (h *MessageHandlers) ListConversations(c *gin.Context) {
	p, _ := principalFrom(c)
	convs, err := h.service.ListConversations(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResponse(conv))
	}
	c.JSON(http.StatusOK, out)
}

// CreateConversation handles conversation creation.
// POST /api/conversations
func (h *MessageHandlers) CreateConversation(c *gin.Context) {
	p, _ := principalFrom(c)

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	conv, err := h.service.CreateConversation(c.Request.Context(), p, req.ParticipantIDs)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int64("conversation_id", conv.ID).Int64("user_id", p.UserID).Msg("conversation created successfully")
	c.JSON(http.StatusCreated, toConversationResponse(conv))
}

// GetConversation handles fetching one conversation.
// GET /api/conversations/:id
func (h *MessageHandlers) GetConversation(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	conv, err := h.service.GetConversation(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toConversationResponse(conv))
}

// ListMessages handles paginated message listing. Membership is checked
// before the query is parsed.
// GET /api/conversations/:id/messages?page=&sender_id=&since=&until=
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if _, err := h.service.GetConversation(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	page, err := parsePage(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var filter store.MessageFilter
	if filter.SenderID, err = parseQueryID(c, "sender_id"); err != nil {
		respondError(c, h.log, err)
		return
	}
	if filter.Since, err = parseQueryTime(c, "since", false); err != nil {
		respondError(c, h.log, err)
		return
	}
	if filter.Until, err = parseQueryTime(c, "until", true); err != nil {
		respondError(c, h.log, err)
		return
	}

	result, err := h.service.ListMessages(c.Request.Context(), p, id, filter, page)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toPageResponse(result))
}

// SendMessage handles posting a message to a conversation.
// POST /api/conversations/:id/messages
func (h *MessageHandlers) SendMessage(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if _, err := h.service.GetConversation(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	msg, err := h.service.SendMessage(c.Request.Context(), p, messaging.SendInput{
		ConversationID: id,
		Body:           req.Body,
		ParentID:       req.ParentID,
		ReceiverID:     req.ReceiverID,
		ClientAddr:     c.ClientIP(),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// GetMessage handles fetching one message.
// GET /api/messages/:id
func (h *MessageHandlers) GetMessage(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	msg, err := h.service.GetMessage(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(msg))
}

// UpdateMessage handles editing a message body.
// PUT /api/messages/:id
func (h *MessageHandlers) UpdateMessage(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	current, err := h.service.GetMessage(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if current.SenderID != p.UserID {
		respondError(c, h.log, core.Forbidden("only the sender may edit message %d", id))
		return
	}

	var req UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	msg, err := h.service.UpdateMessage(c.Request.Context(), p, id, req.Body)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toMessageResponse(msg))
}

// DeleteMessage handles deleting a message and its replies.
// DELETE /api/messages/:id
func (h *MessageHandlers) DeleteMessage(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	h.log.Info().Int64("message_id", id).Int64("user_id", p.UserID).Msg("message deleted")
	c.Status(http.StatusNoContent)
}

// MessageHistory handles listing a message's edit history.
// GET /api/messages/:id/history
func (h *MessageHandlers) MessageHistory(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	entries, err := h.service.History(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toHistoryResponses(entries))
}

// Threads handles the reply forest of the caller's conversations.
// GET /api/threads?conversation_id=
func (h *MessageHandlers) Threads(c *gin.Context) {
	p, _ := principalFrom(c)
	convID, err := parseQueryID(c, "conversation_id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	forest, err := h.service.Threads(c.Request.Context(), p, convID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toThreadResponse(forest))
}

// ListNotifications handles listing the caller's notifications.
// GET /api/notifications?unread=true
func (h *MessageHandlers) ListNotifications(c *gin.Context) {
	p, _ := principalFrom(c)
	unread, err := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	if err != nil {
		respondError(c, h.log, core.Validation("unread must be a boolean"))
		return
	}

	items, err := h.service.ListNotifications(c.Request.Context(), p, unread)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponses(items))
}

// MarkNotificationRead handles acknowledging a notification.
// POST /api/notifications/:id/read
func (h *MessageHandlers) MarkNotificationRead(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.service.MarkNotificationRead(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

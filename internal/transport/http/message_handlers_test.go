package http

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/vovakirdan/wiremsg/internal/config"
)

func createConversation(t *testing.T, s *testServer, token string, ids ...int64) ConversationResponse {
	t.Helper()

	resp := s.do(t, http.MethodPost, "/api/conversations", token, CreateConversationRequest{ParticipantIDs: ids})
	expectStatus(t, resp, http.StatusCreated)
	var conv ConversationResponse
	decode(t, resp, &conv)
	return conv
}

func sendMessage(t *testing.T, s *testServer, token string, convID int64, req SendMessageRequest) MessageResponse {
	t.Helper()

	resp := s.do(t, http.MethodPost, fmt.Sprintf("/api/conversations/%d/messages", convID), token, req)
	expectStatus(t, resp, http.StatusCreated)
	var msg MessageResponse
	decode(t, resp, &msg)
	return msg
}

func TestCreateConversationNeedsTwoParticipants(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, alice := s.register(t, "alice")
	bobID, _ := s.register(t, "bob")

	resp := s.do(t, http.MethodPost, "/api/conversations", alice, CreateConversationRequest{ParticipantIDs: []int64{aliceID}})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	resp = s.do(t, http.MethodPost, "/api/conversations", alice, CreateConversationRequest{ParticipantIDs: []int64{bobID, 999}})
	expectStatus(t, resp, http.StatusUnprocessableEntity)

	conv := createConversation(t, s, alice, bobID)
	if len(conv.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %v", conv.Participants)
	}

	resp = s.do(t, http.MethodGet, "/api/conversations", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var convs []ConversationResponse
	decode(t, resp, &convs)
	if len(convs) != 1 || convs[0].ID != conv.ID {
		t.Fatalf("unexpected conversations %v", convs)
	}

	expectStatus(t, s.do(t, http.MethodGet, "/api/conversations/4242", alice, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodGet, "/api/conversations/abc", alice, nil), http.StatusUnprocessableEntity)
}

func TestNonParticipantGets403(t *testing.T) {
	s := newTestServer(t, nil)
	_, alice := s.register(t, "alice")
	bobID, _ := s.register(t, "bob")
	_, carol := s.register(t, "carol")

	conv := createConversation(t, s, alice, bobID)
	msg := sendMessage(t, s, alice, conv.ID, SendMessageRequest{Body: "hi"})

	path := fmt.Sprintf("/api/conversations/%d/messages", conv.ID)
	expectStatus(t, s.do(t, http.MethodGet, path, carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, path, carol, SendMessageRequest{Body: "intrude"}), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d", conv.ID), carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/messages/%d", msg.ID), carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/messages/%d/history", msg.ID), carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/threads?conversation_id=%d", conv.ID), carol, nil), http.StatusForbidden)

	// Argument errors must not leak past the membership check.
	expectStatus(t, s.do(t, http.MethodGet, path+"?page=0", carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, path+"?page=x", carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodGet, path+"?since=2024-02-01&until=2024-01-01", carol, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, path, carol, "not an object"), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPut, fmt.Sprintf("/api/messages/%d", msg.ID), carol, "not an object"), http.StatusForbidden)

	resp := s.do(t, http.MethodGet, path, "", nil)
	expectStatus(t, resp, http.StatusUnauthorized)
}

func TestReplyThreadScenario(t *testing.T) {
	s := newTestServer(t, nil)
	aliceID, alice := s.register(t, "alice")
	bobID, bob := s.register(t, "bob")
	conv := createConversation(t, s, alice, bobID)

	m1 := sendMessage(t, s, alice, conv.ID, SendMessageRequest{Body: "M1"})
	reply := sendMessage(t, s, bob, conv.ID, SendMessageRequest{Body: "re: M1", ParentID: &m1.ID})
	if reply.ReceiverID == nil || *reply.ReceiverID != aliceID {
		t.Fatalf("expected reply receiver %d, got %v", aliceID, reply.ReceiverID)
	}

	resp := s.do(t, http.MethodGet, "/api/threads", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var forest []ThreadNodeResponse
	decode(t, resp, &forest)
	if len(forest) != 1 {
		t.Fatalf("expected one root, got %d", len(forest))
	}
	if forest[0].ID != m1.ID || len(forest[0].Replies) != 1 || forest[0].Replies[0].ID != reply.ID {
		t.Fatalf("unexpected forest %+v", forest)
	}

	resp = s.do(t, http.MethodGet, "/api/notifications?unread=true", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var notes []NotificationResponse
	decode(t, resp, &notes)
	if len(notes) != 1 || notes[0].MessageID != reply.ID {
		t.Fatalf("expected alice to be notified of the reply, got %v", notes)
	}
	expectStatus(t, s.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), bob, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", notes[0].ID), alice, nil), http.StatusNoContent)
}

func TestUpdateMessageRecordsHistory(t *testing.T) {
	s := newTestServer(t, nil)
	_, alice := s.register(t, "alice")
	bobID, bob := s.register(t, "bob")
	conv := createConversation(t, s, alice, bobID)
	msg := sendMessage(t, s, alice, conv.ID, SendMessageRequest{Body: "original"})
	path := fmt.Sprintf("/api/messages/%d", msg.ID)

	resp := s.do(t, http.MethodPut, path, alice, UpdateMessageRequest{Body: "original"})
	expectStatus(t, resp, http.StatusOK)
	var same MessageResponse
	decode(t, resp, &same)
	if same.Edited {
		t.Fatalf("identical update must not mark edited")
	}

	expectStatus(t, s.do(t, http.MethodPut, path, bob, UpdateMessageRequest{Body: "hijack"}), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPut, path, bob, "not an object"), http.StatusForbidden)

	resp = s.do(t, http.MethodPut, path, alice, UpdateMessageRequest{Body: "changed"})
	expectStatus(t, resp, http.StatusOK)
	var changed MessageResponse
	decode(t, resp, &changed)
	if !changed.Edited || changed.Body != "changed" {
		t.Fatalf("unexpected message %+v", changed)
	}

	resp = s.do(t, http.MethodGet, path+"/history", bob, nil)
	expectStatus(t, resp, http.StatusOK)
	var history []HistoryResponse
	decode(t, resp, &history)
	if len(history) != 1 || history[0].OldBody != "original" {
		t.Fatalf("expected one history entry with the old body, got %v", history)
	}

	expectStatus(t, s.do(t, http.MethodDelete, path, bob, nil), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodDelete, path, alice, nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodGet, path, alice, nil), http.StatusNotFound)
}

func TestListMessagesPagination(t *testing.T) {
	s := newTestServer(t, nil)
	_, alice := s.register(t, "alice")
	bobID, _ := s.register(t, "bob")
	conv := createConversation(t, s, alice, bobID)
	for i := range 3 {
		sendMessage(t, s, alice, conv.ID, SendMessageRequest{Body: fmt.Sprintf("m%d", i)})
	}
	path := fmt.Sprintf("/api/conversations/%d/messages", conv.ID)

	resp := s.do(t, http.MethodGet, path, alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var page PageResponse
	decode(t, resp, &page)
	if page.Count != 3 || page.Page != 1 || page.PageSize != 2 || len(page.Results) != 2 {
		t.Fatalf("unexpected first page %+v", page)
	}
	if page.Results[0].Body != "m2" {
		t.Fatalf("expected newest first, got %s", page.Results[0].Body)
	}

	resp = s.do(t, http.MethodGet, path+"?page=2", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &page)
	if len(page.Results) != 1 || page.Results[0].Body != "m0" {
		t.Fatalf("unexpected second page %+v", page)
	}

	expectStatus(t, s.do(t, http.MethodGet, path+"?page=3", alice, nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodGet, path+"?page=0", alice, nil), http.StatusUnprocessableEntity)
	expectStatus(t, s.do(t, http.MethodGet, path+"?page=x", alice, nil), http.StatusUnprocessableEntity)
	expectStatus(t, s.do(t, http.MethodGet, path+"?since=yesterday", alice, nil), http.StatusUnprocessableEntity)

	// A plain until date covers the whole day.
	resp = s.do(t, http.MethodGet, path+"?since=2024-03-01&until=2024-03-01", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &page)
	if page.Count != 3 {
		t.Fatalf("expected all 3 messages of the day, got %d", page.Count)
	}
	resp = s.do(t, http.MethodGet, path+"?until=2024-02-29", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &page)
	if page.Count != 0 {
		t.Fatalf("expected no messages before the day, got %d", page.Count)
	}

	resp = s.do(t, http.MethodGet, fmt.Sprintf("%s?sender_id=%d", path, bobID), alice, nil)
	expectStatus(t, resp, http.StatusOK)
	decode(t, resp, &page)
	if page.Count != 0 {
		t.Fatalf("expected no messages from bob, got %d", page.Count)
	}
}

func TestSendMessageRateLimit(t *testing.T) {
	s := newTestServer(t, nil)
	_, alice := s.register(t, "alice")
	bobID, bob := s.register(t, "bob")
	conv := createConversation(t, s, alice, bobID)

	for i := range 5 {
		sendMessage(t, s, alice, conv.ID, SendMessageRequest{Body: fmt.Sprintf("m%d", i)})
	}
	path := fmt.Sprintf("/api/conversations/%d/messages", conv.ID)
	resp := s.do(t, http.MethodPost, path, alice, SendMessageRequest{Body: "sixth"})
	expectStatus(t, resp, http.StatusTooManyRequests)

	var body ErrorResponse
	decode(t, resp, &body)
	if body.Code != "rate_limited" {
		t.Fatalf("expected rate_limited code, got %q", body.Code)
	}

	sendMessage(t, s, bob, conv.ID, SendMessageRequest{Body: "bob uses a separate window"})
}

func TestAccessHours(t *testing.T) {
	evening := time.Date(2024, 3, 1, 20, 0, 0, 0, time.Local)
	s := newTestServer(t, func(cfg *config.Config, d *Deps) {
		cfg.AccessHours = config.AccessHours{Enabled: true, StartHour: 9, EndHour: 17}
		d.Now = func() time.Time { return evening }
	})

	resp := s.do(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "password123"})
	expectStatus(t, resp, http.StatusForbidden)

	expectStatus(t, s.do(t, http.MethodGet, "/health", "", nil), http.StatusOK)
}

package http

import (
	"fmt"
	"net/http"
	"testing"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t, nil)
	rootID, root := s.register(t, "root")
	bobID, bob := s.register(t, "bob")

	expectStatus(t, s.do(t, http.MethodGet, "/api/admin/users", bob, nil), http.StatusForbidden)

	s.promote(t, rootID)

	resp := s.do(t, http.MethodGet, "/api/admin/users", root, nil)
	expectStatus(t, resp, http.StatusOK)
	var all []UserResponse
	decode(t, resp, &all)
	if len(all) != 2 {
		t.Fatalf("expected 2 users, got %d", len(all))
	}

	rolePath := fmt.Sprintf("/api/admin/users/%d/role", bobID)
	expectStatus(t, s.do(t, http.MethodPut, rolePath, root, SetRoleRequest{Role: "owner"}), http.StatusUnprocessableEntity)

	resp = s.do(t, http.MethodPut, rolePath, root, SetRoleRequest{Role: "admin"})
	expectStatus(t, resp, http.StatusOK)
	var updated UserResponse
	decode(t, resp, &updated)
	if updated.Role != "admin" {
		t.Fatalf("expected admin role, got %s", updated.Role)
	}

	// The role is read from the store, so bob's existing token now passes.
	expectStatus(t, s.do(t, http.MethodGet, "/api/admin/users", bob, nil), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/admin/users/999", root, nil), http.StatusNotFound)
}

func TestDeleteUserRemovesTwoPersonConversation(t *testing.T) {
	s := newTestServer(t, nil)
	rootID, root := s.register(t, "root")
	s.promote(t, rootID)
	_, alice := s.register(t, "alice")
	bobID, _ := s.register(t, "bob")
	conv := createConversation(t, s, alice, bobID)

	expectStatus(t, s.do(t, http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", bobID), root, nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d", conv.ID), alice, nil), http.StatusNotFound)
}

func TestMeAndSearch(t *testing.T) {
	s := newTestServer(t, nil)
	_, alice := s.register(t, "alice")
	s.register(t, "alicia")

	resp := s.do(t, http.MethodGet, "/api/users/me", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var me UserResponse
	decode(t, resp, &me)
	if me.Username != "alice" || me.Role != "user" {
		t.Fatalf("unexpected me %+v", me)
	}

	resp = s.do(t, http.MethodGet, "/api/users/search?q=ali", alice, nil)
	expectStatus(t, resp, http.StatusOK)
	var found []UserResponse
	decode(t, resp, &found)
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}

	expectStatus(t, s.do(t, http.MethodGet, "/api/users/search", alice, nil), http.StatusUnprocessableEntity)
}

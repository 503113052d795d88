package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wiremsg/internal/service/users"
	"github.com/vovakirdan/wiremsg/internal/store"
)

// UserHandlers provides HTTP handlers for the user directory and admin user management.
type UserHandlers struct {
	service *users.Service
	log     *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(service *users.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		service: service,
		log:     logger,
	}
}

// SetRoleRequest represents the role change request body.
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Me handles fetching the caller's user record.
// GET /api/users/me
func (h *UserHandlers) Me(c *gin.Context) {
	p, _ := principalFrom(c)
	user, err := h.service.Me(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// SearchUsers handles user search by username.
// GET /api/users/search?q=query
func (h *UserHandlers) SearchUsers(c *gin.Context) {
	found, err := h.service.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(found))
}

// ListUsers handles listing every user.
// GET /api/admin/users
func (h *UserHandlers) ListUsers(c *gin.Context) {
	p, _ := principalFrom(c)
	all, err := h.service.List(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponses(all))
}

// SetRole handles changing a user's role.
// PUT /api/admin/users/:id/role
func (h *UserHandlers) SetRole(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.log, "invalid request body", err)
		return
	}

	user, err := h.service.SetRole(c.Request.Context(), p, id, store.Role(req.Role))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteUser handles deleting a user.
// DELETE /api/admin/users/:id
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	p, _ := principalFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), p, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateConversation creates a conversation inside an existing session.
// POST /api/conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var req domain.ConversationCreate
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	conv, err := h.service.CreateConversation(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// ListConversationsBySession returns the conversations of a session.
// GET /api/conversations/by-session/:session_id?page=1&page_size=20
func (h *Handler) ListConversationsBySession(c echo.Context) error {
	sessionID, err := pathID(c, "session_id")
	if err != nil {
		return h.respondError(c, err)
	}
	page, err := pageRequest(c, domain.DefaultPageSize)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.service.GetSession(ctx, sessionID); err != nil {
		return h.respondError(c, err)
	}
	result, err := h.service.ListConversationsBySession(ctx, sessionID, page)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetConversation returns one conversation.
// GET /api/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	id, err := pathID(c, "conversation_id")
	if err != nil {
		return h.respondError(c, err)
	}
	conv, err := h.service.GetConversation(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// UpdateConversation applies a merge patch to a conversation.
// PUT /api/conversations/:conversation_id
func (h *Handler) UpdateConversation(c echo.Context) error {
	id, err := pathID(c, "conversation_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.ConversationUpdate
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	conv, err := h.service.UpdateConversation(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// DeleteConversation removes a conversation and its exchanges.
// DELETE /api/conversations/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	id, err := pathID(c, "conversation_id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.service.DeleteConversation(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GenerateExchange sends a message to a provider with the conversation's
// history and records the reply.
// POST /api/conversations/:conversation_id/generate
func (h *Handler) GenerateExchange(c echo.Context) error {
	id, err := pathID(c, "conversation_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.ChatRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	exchange, err := h.service.GenerateExchange(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, exchange)
}

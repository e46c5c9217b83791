package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateSession creates a session.
// POST /api/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.SessionCreate
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	session, err := h.service.CreateSession(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// ListSessions returns sessions, most recently updated first.
// GET /api/sessions?page=1&page_size=20
func (h *Handler) ListSessions(c echo.Context) error {
	page, err := pageRequest(c, domain.DefaultPageSize)
	if err != nil {
		return h.respondError(c, err)
	}
	result, err := h.service.ListSessions(c.Request().Context(), page)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetSession returns one session.
// GET /api/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	id, err := pathID(c, "session_id")
	if err != nil {
		return h.respondError(c, err)
	}
	session, err := h.service.GetSession(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// UpdateSession applies a merge patch to a session.
// PUT /api/sessions/:session_id
func (h *Handler) UpdateSession(c echo.Context) error {
	id, err := pathID(c, "session_id")
	if err != nil {
		return h.respondError(c, err)
	}
	var req domain.SessionUpdate
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	session, err := h.service.UpdateSession(c.Request().Context(), id, req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// DeleteSession removes a session with its conversations and exchanges.
// DELETE /api/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := pathID(c, "session_id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.service.DeleteSession(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

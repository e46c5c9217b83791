package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/clouseau/internal/domain"
)

// CreateExchange records an exchange inside an existing conversation.
// POST /api/exchanges
func (h *Handler) CreateExchange(c echo.Context) error {
	var req domain.ExchangeCreate
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	exchange, err := h.service.CreateExchange(c.Request().Context(), req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, exchange)
}

// ListExchangesByConversation returns exchanges in the order they were recorded.
// GET /api/exchanges/by-conversation/:conversation_id?page=1&page_size=50
func (h *Handler) ListExchangesByConversation(c echo.Context) error {
	convID, err := pathID(c, "conversation_id")
	if err != nil {
		return h.respondError(c, err)
	}
	page, err := pageRequest(c, domain.DefaultExchangePageSize)
	if err != nil {
		return h.respondError(c, err)
	}
	ctx := c.Request().Context()
	if _, err := h.service.GetConversation(ctx, convID); err != nil {
		return h.respondError(c, err)
	}
	result, err := h.service.ListExchangesByConversation(ctx, convID, page)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetExchange returns one exchange.
// GET /api/exchanges/:exchange_id
func (h *Handler) GetExchange(c echo.Context) error {
	id, err := pathID(c, "exchange_id")
	if err != nil {
		return h.respondError(c, err)
	}
	exchange, err := h.service.GetExchange(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, exchange)
}

// DeleteExchange removes one exchange.
// DELETE /api/exchanges/:exchange_id
func (h *Handler) DeleteExchange(c echo.Context) error {
	id, err := pathID(c, "exchange_id")
	if err != nil {
		return h.respondError(c, err)
	}
	if err := h.service.DeleteExchange(c.Request().Context(), id); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

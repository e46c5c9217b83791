package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// CountTokensRequest is the body of the count-tokens endpoint.
type CountTokensRequest struct {
	Text string `json:"text"`
}

// ListProviders describes every registered provider.
// GET /api/providers
func (h *Handler) ListProviders(c echo.Context) error {
	providers := h.service.ListProviders()
	var defaultName string
	for _, p := range providers {
		if p.Default {
			defaultName = p.Name
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"providers":        providers,
		"default_provider": defaultName,
	})
}

// GetProvider describes one provider.
// GET /api/providers/:name
func (h *Handler) GetProvider(c echo.Context) error {
	status, err := h.service.DescribeProvider(c.Param("name"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// CountTokens estimates the token count of a text for a provider.
// POST /api/providers/:name/count-tokens
func (h *Handler) CountTokens(c echo.Context) error {
	var req CountTokensRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	tokens, err := h.service.CountTokens(c.Param("name"), req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"tokens": tokens})
}

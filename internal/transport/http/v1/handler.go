// Package v1 provides the HTTP handlers of the ledger API.
package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/domain"
	"github.com/xiaot623/clouseau/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")

	// Sessions
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:session_id", h.GetSession)
	api.PUT("/sessions/:session_id", h.UpdateSession)
	api.DELETE("/sessions/:session_id", h.DeleteSession)

	// Conversations
	api.POST("/conversations", h.CreateConversation)
	api.GET("/conversations/by-session/:session_id", h.ListConversationsBySession)
	api.GET("/conversations/:conversation_id", h.GetConversation)
	api.PUT("/conversations/:conversation_id", h.UpdateConversation)
	api.DELETE("/conversations/:conversation_id", h.DeleteConversation)
	api.POST("/conversations/:conversation_id/generate", h.GenerateExchange)

	// Exchanges
	api.POST("/exchanges", h.CreateExchange)
	api.GET("/exchanges/by-conversation/:conversation_id", h.ListExchangesByConversation)
	api.GET("/exchanges/:exchange_id", h.GetExchange)
	api.DELETE("/exchanges/:exchange_id", h.DeleteExchange)

	// Providers
	api.GET("/providers", h.ListProviders)
	api.GET("/providers/:name", h.GetProvider)
	api.POST("/providers/:name/count-tokens", h.CountTokens)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	if err := h.service.Ping(c.Request().Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"version": Version,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

// bind decodes the request body into v and validates it.
func (h *Handler) bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return &domain.ValidationError{Message: "invalid request body"}
	}
	return c.Validate(v)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Message: "must be an integer"}
	}
	return id, nil
}

// pageRequest reads page and page_size, applying defaults. Bounds are
// checked by the service.
func pageRequest(c echo.Context, defaultSize int) (domain.PageRequest, error) {
	page := domain.PageRequest{Page: 1, PageSize: defaultSize}
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &domain.ValidationError{Field: "page", Message: "must be an integer"}
		}
		page.Page = n
	}
	if v := c.QueryParam("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return page, &domain.ValidationError{Field: "page_size", Message: "must be an integer"}
		}
		page.PageSize = n
	}
	return page, nil
}

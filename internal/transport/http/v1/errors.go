package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xiaot623/clouseau/internal/adapter/llm"
	"github.com/xiaot623/clouseau/internal/domain"
)

// ValidationDetail is one entry of a 422 response.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

var queryFields = map[string]bool{"page": true, "page_size": true}

// respondError maps a service error onto a status code and a {"detail": ...}
// body. Unclassified errors are logged and answered with a generic 500.
func (h *Handler) respondError(c echo.Context, err error) error {
	var (
		verr *domain.ValidationError
		perr *llm.ProviderError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []ValidationDetail{validationDetail(c, verr)},
		})
	case domain.IsNotFound(err), errors.Is(err, llm.ErrUnknownProvider):
		return c.JSON(http.StatusNotFound, map[string]string{"detail": err.Error()})
	case errors.Is(err, llm.ErrNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"detail": err.Error()})
	case errors.As(err, &perr):
		h.logger.Warn("provider call failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"detail": perr.Error()})
	default:
		h.logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "Internal server error"})
	}
}

func validationDetail(c echo.Context, verr *domain.ValidationError) ValidationDetail {
	loc := []string{"body"}
	switch {
	case queryFields[verr.Field]:
		loc = []string{"query", verr.Field}
	case c.Param(verr.Field) != "":
		loc = []string{"path", verr.Field}
	case verr.Field != "":
		loc = append(loc, verr.Field)
	}
	return ValidationDetail{Loc: loc, Msg: verr.Message, Type: "value_error"}
}

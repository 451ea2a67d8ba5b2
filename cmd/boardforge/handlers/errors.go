package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/service"
	"github.com/boardforge/boardforge/common/validation"
)

// respondError maps service errors onto the HTTP status contract shared
// by every handler.
func respondError(c echo.Context, err error) error {
	var ruleErr *validation.RuleError
	switch {
	case errors.As(err, &ruleErr):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": ruleErr.Message,
			"rule":  ruleErr.Rule,
		})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"error": "forbidden",
		})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "not found",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "internal error",
		})
	}
}

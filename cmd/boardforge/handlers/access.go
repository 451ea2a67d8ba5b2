package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	"github.com/boardforge/boardforge/cmd/boardforge/service"
)

// AccessHandler handles sharing and grant requests
type AccessHandler struct {
	access *service.AccessService
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{
		access: access,
	}
}

// GrantRole assigns a role to another user
// POST /api/v1/grants
func (h *AccessHandler) GrantRole(c echo.Context) error {
	callerID := middleware.GetUserID(c)

	var input service.GrantRoleInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	if err := h.access.GrantRole(c.Request().Context(), callerID, input); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// RevokeRole removes a role grant
// DELETE /api/v1/grants
func (h *AccessHandler) RevokeRole(c echo.Context) error {
	callerID := middleware.GetUserID(c)

	var input service.GrantRoleInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	if err := h.access.RevokeRole(c.Request().Context(), callerID, input); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// MyGrants lists everything the caller holds
// GET /api/v1/grants/me
func (h *AccessHandler) MyGrants(c echo.Context) error {
	userID := middleware.GetUserID(c)

	grants, err := h.access.MyGrants(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, grants)
}

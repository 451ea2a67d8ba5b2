package handlers

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	"github.com/boardforge/boardforge/cmd/boardforge/service"
	"github.com/boardforge/boardforge/common/models"
)

// PartHandler handles part-related requests
type PartHandler struct {
	parts *service.PartService
}

// NewPartHandler creates a new part handler
func NewPartHandler(parts *service.PartService) *PartHandler {
	return &PartHandler{
		parts: parts,
	}
}

// CreatePart adds a part to a version's component tree
// POST /api/v1/versions/:id/parts
func (h *PartHandler) CreatePart(c echo.Context) error {
	userID := middleware.GetUserID(c)

	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid version id",
		})
	}

	var input service.CreatePartInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	part, err := h.parts.CreatePart(c.Request().Context(), userID, versionID, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, part)
}

// MovePart updates a part's placement and flip state
// PUT /api/v1/parts/:id/position
func (h *PartHandler) MovePart(c echo.Context) error {
	userID := middleware.GetUserID(c)

	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid part id",
		})
	}

	var input service.MovePartInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	part, err := h.parts.MovePart(c.Request().Context(), userID, partID, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, part)
}

// PatchProperty applies an RFC 6902 patch to one side's properties
// PATCH /api/v1/parts/:id/properties/:side
func (h *PartHandler) PatchProperty(c echo.Context) error {
	userID := middleware.GetUserID(c)

	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid part id",
		})
	}

	side := models.PropertySide(c.Param("side"))
	if side != models.SideFront && side != models.SideBack {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "side must be front or back",
		})
	}

	patch, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "failed to read request body",
		})
	}

	prop, err := h.parts.PatchProperty(c.Request().Context(), userID, partID, side, patch)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, prop)
}

// DeletePart removes a part
// DELETE /api/v1/parts/:id
func (h *PartHandler) DeletePart(c echo.Context) error {
	userID := middleware.GetUserID(c)

	partID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid part id",
		})
	}

	if err := h.parts.DeletePart(c.Request().Context(), userID, partID); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

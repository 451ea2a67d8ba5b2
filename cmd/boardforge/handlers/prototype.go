package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	"github.com/boardforge/boardforge/cmd/boardforge/service"
)

// PrototypeHandler handles prototype-related requests
type PrototypeHandler struct {
	prototypes *service.PrototypeService
}

// NewPrototypeHandler creates a new prototype handler
func NewPrototypeHandler(prototypes *service.PrototypeService) *PrototypeHandler {
	return &PrototypeHandler{
		prototypes: prototypes,
	}
}

// CreatePrototype creates a new editable prototype
// POST /api/v1/prototypes
func (h *PrototypeHandler) CreatePrototype(c echo.Context) error {
	userID := middleware.GetUserID(c)

	var input service.CreatePrototypeInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	proto, err := h.prototypes.Create(c.Request().Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, proto)
}

// GetPrototype retrieves a prototype by ID
// GET /api/v1/prototypes/:id
func (h *PrototypeHandler) GetPrototype(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	proto, err := h.prototypes.Get(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, proto)
}

// ListPrototypes lists the prototypes the caller may read
// GET /api/v1/prototypes
func (h *PrototypeHandler) ListPrototypes(c echo.Context) error {
	userID := middleware.GetUserID(c)

	protos, err := h.prototypes.List(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"prototypes": protos,
	})
}

// UpdatePrototype updates a prototype's mutable fields
// PUT /api/v1/prototypes/:id
func (h *PrototypeHandler) UpdatePrototype(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	var input service.UpdatePrototypeInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	proto, err := h.prototypes.Update(c.Request().Context(), userID, id, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, proto)
}

// DeletePrototype deletes a prototype and everything under it
// DELETE /api/v1/prototypes/:id
func (h *PrototypeHandler) DeletePrototype(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	if err := h.prototypes.Delete(c.Request().Context(), userID, id); err != nil {
		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// DuplicatePrototype clones a prototype into an independent editable copy
// POST /api/v1/prototypes/:id/duplicate
func (h *PrototypeHandler) DuplicatePrototype(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	dup, err := h.prototypes.Duplicate(c.Request().Context(), userID, id, body.Name)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, dup)
}

// CreateInstance derives a room copy for a play session
// POST /api/v1/prototypes/:id/instances
func (h *PrototypeHandler) CreateInstance(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	instance, err := h.prototypes.CreateInstance(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, instance)
}

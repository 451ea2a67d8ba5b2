package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	"github.com/boardforge/boardforge/cmd/boardforge/service"
)

// VersionHandler handles version-related requests
type VersionHandler struct {
	prototypes *service.PrototypeService
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(prototypes *service.PrototypeService) *VersionHandler {
	return &VersionHandler{
		prototypes: prototypes,
	}
}

// ListVersions lists a prototype's versions, newest first
// GET /api/v1/prototypes/:id/versions
func (h *VersionHandler) ListVersions(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	versions, err := h.prototypes.ListVersions(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"versions": versions,
	})
}

// CreateVersion snapshots a source version into a new one
// POST /api/v1/prototypes/:id/versions
func (h *VersionHandler) CreateVersion(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid prototype id",
		})
	}

	var input service.CreateVersionInput
	if err := c.Bind(&input); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	version, err := h.prototypes.CreateVersion(c.Request().Context(), userID, id, input)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, version)
}

// GetVersionGraph returns the full content of one version
// GET /api/v1/versions/:id/graph
func (h *VersionHandler) GetVersionGraph(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid version id",
		})
	}

	graph, err := h.prototypes.GetVersionGraph(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, graph)
}

// JoinVersion seats the caller at a room version
// POST /api/v1/versions/:id/join
func (h *VersionHandler) JoinVersion(c echo.Context) error {
	userID := middleware.GetUserID(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid version id",
		})
	}

	seat, err := h.prototypes.Join(c.Request().Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, seat)
}

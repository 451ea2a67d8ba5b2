package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/container"
	"github.com/boardforge/boardforge/cmd/boardforge/handlers"
	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	commonmw "github.com/boardforge/boardforge/common/middleware"
)

// RegisterVersionRoutes registers version content and part routes
func RegisterVersionRoutes(e *echo.Echo, c *container.Container) {
	vh := handlers.NewVersionHandler(c.PrototypeService)
	ph := handlers.NewPartHandler(c.PartService)

	versions := e.Group("/api/v1/versions")
	versions.Use(middleware.ExtractUserIDStrict())
	if c.Components.Config.RateLimit.Enabled {
		versions.Use(commonmw.UserRateLimitMiddleware(c.RateLimiter, c.Limits))
	}
	{
		versions.GET("/:id/graph", vh.GetVersionGraph) // GET /api/v1/versions/{id}/graph
		versions.POST("/:id/join", vh.JoinVersion)     // POST /api/v1/versions/{id}/join
		versions.POST("/:id/parts", ph.CreatePart)     // POST /api/v1/versions/{id}/parts
	}

	parts := e.Group("/api/v1/parts")
	parts.Use(middleware.ExtractUserIDStrict())
	if c.Components.Config.RateLimit.Enabled {
		parts.Use(commonmw.UserRateLimitMiddleware(c.RateLimiter, c.Limits))
	}
	{
		parts.PUT("/:id/position", ph.MovePart)                 // PUT /api/v1/parts/{id}/position
		parts.PATCH("/:id/properties/:side", ph.PatchProperty)  // PATCH /api/v1/parts/{id}/properties/{side}
		parts.DELETE("/:id", ph.DeletePart)                     // DELETE /api/v1/parts/{id}
	}
}

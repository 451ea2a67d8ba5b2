package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/container"
	"github.com/boardforge/boardforge/cmd/boardforge/handlers"
	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
	commonmw "github.com/boardforge/boardforge/common/middleware"
)

// RegisterPrototypeRoutes registers all prototype-related routes
func RegisterPrototypeRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewPrototypeHandler(c.PrototypeService)
	vh := handlers.NewVersionHandler(c.PrototypeService)

	// Prototype routes require an authenticated caller; mutations are
	// additionally rate limited per user.
	protos := e.Group("/api/v1/prototypes")
	protos.Use(middleware.ExtractUserIDStrict())
	if c.Components.Config.RateLimit.Enabled {
		protos.Use(commonmw.UserRateLimitMiddleware(c.RateLimiter, c.Limits))
	}
	{
		protos.POST("", h.CreatePrototype)                 // POST /api/v1/prototypes
		protos.GET("", h.ListPrototypes)                   // GET /api/v1/prototypes
		protos.GET("/:id", h.GetPrototype)                 // GET /api/v1/prototypes/{id}
		protos.PUT("/:id", h.UpdatePrototype)              // PUT /api/v1/prototypes/{id}
		protos.DELETE("/:id", h.DeletePrototype)           // DELETE /api/v1/prototypes/{id}
		protos.POST("/:id/duplicate", h.DuplicatePrototype) // POST /api/v1/prototypes/{id}/duplicate
		protos.POST("/:id/instances", h.CreateInstance)    // POST /api/v1/prototypes/{id}/instances
		protos.GET("/:id/versions", vh.ListVersions)       // GET /api/v1/prototypes/{id}/versions
		protos.POST("/:id/versions", vh.CreateVersion)     // POST /api/v1/prototypes/{id}/versions
	}
}

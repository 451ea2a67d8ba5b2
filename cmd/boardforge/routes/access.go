package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/cmd/boardforge/container"
	"github.com/boardforge/boardforge/cmd/boardforge/handlers"
	"github.com/boardforge/boardforge/cmd/boardforge/middleware"
)

// RegisterAccessRoutes registers sharing and grant routes
func RegisterAccessRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewAccessHandler(c.AccessService)

	grants := e.Group("/api/v1/grants")
	grants.Use(middleware.ExtractUserIDStrict())
	{
		grants.POST("", h.GrantRole)    // POST /api/v1/grants
		grants.DELETE("", h.RevokeRole) // DELETE /api/v1/grants
		grants.GET("/me", h.MyGrants)   // GET /api/v1/grants/me
	}
}

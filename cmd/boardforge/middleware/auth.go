package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for storing the authenticated user id
	UserIDKey ContextKey = "user_id"
)

// ExtractUserID pulls the X-User-ID header into the request context.
// Identity is asserted by the gateway in front of this service; this
// middleware only makes it reachable for handlers and the rate limiter.
func ExtractUserID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get("X-User-ID")
			if userID != "" {
				c.Set(string(UserIDKey), userID)
			}
			return next(c)
		}
	}
}

// ExtractUserIDStrict rejects requests without an X-User-ID header. Used
// on every route that reads or mutates user-scoped data.
func ExtractUserIDStrict() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := c.Request().Header.Get("X-User-ID")
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "X-User-ID header is required",
				})
			}

			c.Set(string(UserIDKey), userID)
			return next(c)
		}
	}
}

// GetUserID retrieves the user id from the request context. Returns
// empty string if not set.
func GetUserID(c echo.Context) string {
	userID := c.Get(string(UserIDKey))
	if userID == nil {
		return ""
	}
	return userID.(string)
}

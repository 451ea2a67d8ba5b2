package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boardforge/boardforge/common/ratelimit"
)

// GlobalRateLimitMiddleware checks the global service-wide rate limit.
// Protects the store from being overwhelmed by mutation bursts.
func GlobalRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limits ratelimit.Limits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := rateLimiter.CheckGlobalLimit(c.Request().Context(), limits.GlobalLimit, limits.WindowSeconds)
			if err != nil {
				// Fail open: a limiter outage must not take writes down with it.
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "global_rate_limit_exceeded",
					"message": "Service is experiencing high load. Please try again later.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

// UserRateLimitMiddleware checks per-user mutation limits. Requires the
// user id to be set in context by the auth middleware.
func UserRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, limits ratelimit.Limits) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("user_id").(string)
			if !ok || userID == "" {
				// Unauthenticated requests are rejected downstream.
				return next(c)
			}

			result, err := rateLimiter.CheckUserLimit(c.Request().Context(), userID, limits.UserLimit, limits.WindowSeconds)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":   "user_rate_limit_exceeded",
					"message": "You have exceeded your request quota. Please wait before trying again.",
					"details": map[string]interface{}{
						"limit":               result.Limit,
						"current_count":       result.CurrentCount,
						"retry_after_seconds": result.RetryAfterSeconds,
					},
				})
			}

			return next(c)
		}
	}
}

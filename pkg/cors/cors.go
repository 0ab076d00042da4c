package cors

import (
	"github.com/labstack/echo/v4"
	"net/http"
)

// Middleware allows cross-origin calls from origin ("*" for any)
func Middleware(origin string) echo.MiddlewareFunc {
	if origin == "" {
		origin = "*"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Accept,Content-Type")
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}

package cors

import (
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(origin, method string) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(Middleware(origin))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "OK") })
	e.OPTIONS("/", func(c echo.Context) error { return c.String(http.StatusOK, "handler") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
	return rec
}

func TestMiddlewareAnyOrigin(t *testing.T) {
	rec := serve("", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}

func TestMiddlewareFixedOrigin(t *testing.T) {
	rec := serve("https://partywatch.live", http.MethodGet)
	assert.Equal(t, "https://partywatch.live", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestMiddlewarePreflight(t *testing.T) {
	rec := serve("*", http.MethodOptions)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

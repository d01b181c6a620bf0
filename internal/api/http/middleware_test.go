package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/observability"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

func newTestApp() (*fiber.App, *observability.Metrics) {
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)
	return app, metrics
}

func doRequest(t *testing.T, app *fiber.App, method, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp, body
}

func TestErrorMiddlewareRendersDomainErrors(t *testing.T) {
	app, metrics := newTestApp()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_code": "GRV-2026-00404"})
	})

	resp, body := doRequest(t, app, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", errObj["code"])
	assert.Equal(t, "ticket not found", errObj["message"])
	details, ok := errObj["details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "GRV-2026-00404", details["ticket_code"])

	_, errCounts := metrics.Snapshot()
	assert.NotEmpty(t, errCounts)
}

func TestErrorMiddlewareWrapsUnknownErrors(t *testing.T) {
	app, _ := newTestApp()
	app.Get("/opaque", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, body := doRequest(t, app, http.MethodGet, "/opaque")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
}

func TestErrorMiddlewareRecoversPanics(t *testing.T) {
	app, _ := newTestApp()
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, body := doRequest(t, app, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", errObj["code"])
}

func TestHealthySuccessPassesThrough(t *testing.T) {
	app, _ := newTestApp()
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": "fine"})
	})

	resp, body := doRequest(t, app, http.MethodGet, "/ok")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fine", body["data"])
}

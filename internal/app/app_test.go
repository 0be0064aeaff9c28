package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LKP_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("LKP_PATHS_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LKP_PATHS_LOGS_DIR", filepath.Join(dir, "logs"))
	t.Setenv("LKP_SECURITY_RATE_LIMIT_ENABLED", "false")

	app, err := NewApplication()
	require.NoError(t, err)
	t.Cleanup(app.Hub.Shutdown)
	return app
}

func TestNewApplication_Wiring(t *testing.T) {
	app := newTestApp(t)

	require.NotNil(t, app.Router)
	require.NotNil(t, app.Server)
	require.NotNil(t, app.Store)
	require.NotNil(t, app.KPIService)
	assert.Contains(t, app.Config.DatasetFile(), "current_data.xlsx")
}

func TestRouter_CoreEndpoints(t *testing.T) {
	app := newTestApp(t)

	t.Run("health is up", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics exposed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("kpi endpoints respond with no-dataset problem", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/kpi/summary", nil)
		req.Header.Set("X-Request-ID", "test-trace-1")
		app.Router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "problem+json")

		// The problem document carries the request id through as trace_id.
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "test-trace-1", body["trace_id"])
	})

	t.Run("request id header set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})
}

package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Scenarios.Dir = t.TempDir()
	return cfg
}

func TestServerRoutes(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Scenarios.Dir, "extra.toml"), []byte(`
[[scenarios]]
id = "sum"
host = "return 1 + 2;"
expect = "3"
`), 0o644))

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	defer srv.Close()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))

	req = httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{"scenario":"sum"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"verdict":"pass"`)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `membrane_scenario_runs_total{scenario="sum",verdict="pass"} 1`)
}

func TestServerStream(t *testing.T) {
	srv, err := NewServer(testConfig(t))
	require.NoError(t, err)
	defer srv.Close()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/stream", nil)
	require.NoError(t, err)
	defer c.Close()

	var hello map[string]any
	require.NoError(t, c.ReadJSON(&hello))
	assert.Equal(t, "system", hello["type"])
}

func TestNewServerErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Logging.Level = "loud"
	_, err := NewServer(cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Scenarios.Dir = filepath.Join(cfg.Scenarios.Dir, "missing")
	_, err = NewServer(cfg)
	assert.ErrorContains(t, err, "load scenarios")
}

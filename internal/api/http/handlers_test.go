package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

func setup(t *testing.T, cfg scenario.Config) (*gin.Engine, *scenario.Runner) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := scenario.Default()
	require.NoError(t, err)
	metrics := monitoring.NewMetrics()
	runner, err := scenario.NewRunner(catalog, cfg, scenario.WithObserver(metrics))
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })

	r := gin.New()
	NewHandlers(runner, metrics).Register(r)
	return r, runner
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	r, _ := setup(t, scenario.DefaultConfig())

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"online","service":"membrane","version":"`+Version+`"}`, w.Body.String())

	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", health["status"])
	assert.EqualValues(t, 4, health["scenarios"])
}

func TestScenarioRoutes(t *testing.T) {
	r, _ := setup(t, scenario.DefaultConfig())

	w := do(r, http.MethodGet, "/scenarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Scenarios []scenario.Scenario `json:"scenarios"`
		Count     int                 `json:"count"`
	}](t, w)
	assert.Equal(t, 4, list.Count)
	assert.Len(t, list.Scenarios, 4)

	w = do(r, http.MethodGet, "/scenarios/revoke", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revoke", decode[scenario.Scenario](t, w).ID)

	w = do(r, http.MethodGet, "/scenarios/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/scenarios", `{"id":"answer","host":"return 6 * 7;","expect":"42"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/scenarios", `{"id":"no-host"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/scenarios", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/runs", `{"scenario":"answer"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	run := decode[scenario.Run](t, w)
	assert.Equal(t, scenario.VerdictPass, run.Verdict)
	assert.Equal(t, "42", run.Result)
}

func TestRunLifecycle(t *testing.T) {
	r, _ := setup(t, scenario.DefaultConfig())

	w := do(r, http.MethodPost, "/runs", `{"scenario":"object-equality"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	run := decode[scenario.Run](t, w)
	assert.Equal(t, scenario.VerdictPass, run.Verdict)
	assert.Equal(t, "object-equality", run.ScenarioID)
	path := "/runs/" + run.ID.String()

	w = do(r, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, run.ID, decode[scenario.Run](t, w).ID)

	w = do(r, http.MethodGet, path+"/console", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "listener successfully removed!")

	w = do(r, http.MethodPost, path+"/revoke", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[scenario.Run](t, w).Revoked)

	w = do(r, http.MethodPost, path+"/detach", "")
	require.Equal(t, http.StatusOK, w.Code)
	for kind, status := range decode[scenario.Run](t, w).Status {
		assert.NotEqual(t, scenario.StatusAttached, status, kind)
	}

	w = do(r, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["count"])

	w = do(r, http.MethodPost, "/runs/detach", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["detached"])

	w = do(r, http.MethodPost, "/gc", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRunErrors(t *testing.T) {
	r, runner := setup(t, scenario.Config{Realm: scenario.DefaultConfig().Realm, MaxRuns: 1})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"missing body", http.MethodPost, "/runs", `{}`, http.StatusBadRequest},
		{"unknown scenario", http.MethodPost, "/runs", `{"scenario":"missing"}`, http.StatusNotFound},
		{"unknown run", http.MethodGet, "/runs/run_missing", "", http.StatusNotFound},
		{"revoke unknown run", http.MethodPost, "/runs/run_missing/revoke", "", http.StatusNotFound},
		{"detach unknown run", http.MethodPost, "/runs/run_missing/detach", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(r, tt.method, tt.path, tt.body).Code)
		})
	}

	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/runs", `{"scenario":"revoke"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/runs", `{"scenario":"revoke"}`).Code)

	require.NoError(t, runner.Close())
	w := do(r, http.MethodPost, "/runs", `{"scenario":"revoke"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestQuarantinedScenario(t *testing.T) {
	cfg := scenario.DefaultConfig()
	cfg.QuarantineAfter = 1
	r, _ := setup(t, cfg)

	w := do(r, http.MethodPost, "/scenarios", `{"id":"broken","foreign":"this is not javascript","host":"return 1;"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, "/runs", `{"scenario":"broken"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, scenario.VerdictError, decode[scenario.Run](t, w).Verdict)

	assert.Equal(t, http.StatusConflict, do(r, http.MethodPost, "/runs", `{"scenario":"broken"}`).Code)
	list := decode[map[string]any](t, do(r, http.MethodGet, "/scenarios", ""))
	assert.Equal(t, []any{"broken"}, list["quarantined"])

	// replacing the definition lifts the quarantine
	w = do(r, http.MethodPost, "/scenarios", `{"id":"broken","host":"return 1;","expect":"1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = do(r, http.MethodPost, "/runs", `{"scenario":"broken"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, scenario.VerdictPass, decode[scenario.Run](t, w).Verdict)
}

func TestMetricsRoutes(t *testing.T) {
	r, _ := setup(t, scenario.DefaultConfig())
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/runs", `{"scenario":"membrane-equality"}`).Code)

	w := do(r, http.MethodGet, "/metrics/json", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Metrics monitoring.Snapshot `json:"metrics"`
		Runs    RunSummary          `json:"runs"`
	}](t, w)
	assert.EqualValues(t, 1, body.Metrics.Runs)
	assert.Positive(t, body.Metrics.WrappersCreated)
	assert.Equal(t, 1, body.Runs.Total)
	assert.Equal(t, 1, body.Runs.Verdicts[scenario.VerdictPass])

	w = do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "membrane_scenario_runs_total"))
}

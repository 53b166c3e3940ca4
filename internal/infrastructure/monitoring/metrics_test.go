package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/membrane/internal/membrane"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

var _ scenario.Observer = (*Metrics)(nil)

func TestIndependentRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	a.RunCompleted("revoke", "pass")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Runs.WithLabelValues("revoke", "pass")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Runs.WithLabelValues("revoke", "pass")))
}

func TestMembraneObserver(t *testing.T) {
	m := NewMetrics()
	m.WrapperCreated(membrane.Wet)
	m.WrapperCreated(membrane.Wet)
	m.WrapperCreated(membrane.Dry)
	m.Revoked(3)
	m.IsolationBreach("config")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WrappersCreated.WithLabelValues("wet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WrappersCreated.WithLabelValues("dry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Revocations))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.WrappersRevoked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IsolationBreaches.WithLabelValues("config")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.WrappersCreated)
	assert.Equal(t, int64(3), snap.WrappersRevoked)
	assert.Equal(t, int64(1), snap.IsolationBreaches)
}

func TestRunMetrics(t *testing.T) {
	m := NewMetrics()
	m.RunCompleted("object-equality", "pass")
	m.RunCompleted("object-equality", "fail")
	m.ActiveRuns(2)
	m.RealmCollected("realm")
	m.RealmCollected("realm-global")
	m.ActiveRuns(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RealmsCollected.WithLabelValues("realm")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Runs)
	assert.Equal(t, int64(1), snap.RunsActive)
	assert.Equal(t, int64(2), snap.RealmsCollected)
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/runs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/runs/a", "/runs/b"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/runs/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(2), snap.TotalErrors)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "membrane_http_requests_total")
	assert.Contains(t, string(body), "membrane_uptime_seconds")
}

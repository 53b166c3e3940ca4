package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Membrane metrics
	WrappersCreated   *prometheus.CounterVec
	Revocations       prometheus.Counter
	WrappersRevoked   prometheus.Counter
	IsolationBreaches *prometheus.CounterVec

	// Scenario metrics
	Runs            *prometheus.CounterVec
	RunsActive      prometheus.Gauge
	RealmsCollected *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API.
type Snapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`
	WrappersCreated   int64   `json:"wrappers_created"`
	WrappersRevoked   int64   `json:"wrappers_revoked"`
	IsolationBreaches int64   `json:"isolation_breaches"`
	Runs              int64   `json:"runs"`
	RunsActive        int64   `json:"runs_active"`
	RealmsCollected   int64   `json:"realms_collected"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
}

// NewMetrics creates a metrics collector with a fresh registry that also
// carries the Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "membrane_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		WrappersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_wrappers_created_total",
				Help: "Wrappers created, by the side the target came from",
			},
			[]string{"from"},
		),
		Revocations: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "membrane_revocations_total",
				Help: "Membranes revoked",
			},
		),
		WrappersRevoked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "membrane_wrappers_revoked_total",
				Help: "Live wrappers severed by revocation",
			},
		),
		IsolationBreaches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_isolation_breaches_total",
				Help: "Raw targets handed across for frozen properties",
			},
			[]string{"property"},
		),

		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_scenario_runs_total",
				Help: "Scenario runs, by scenario and verdict",
			},
			[]string{"scenario", "verdict"},
		),
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "membrane_scenario_runs_active",
				Help: "Runs whose foreign realm has not been fully collected",
			},
		),
		RealmsCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_realm_collections_total",
				Help: "Foreign realm objects garbage collected, by kind",
			},
			[]string{"kind"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "membrane_ws_connections",
				Help: "Open WebSocket stream connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "membrane_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "membrane_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// WrapperCreated implements membrane.Observer.
func (m *Metrics) WrapperCreated(from membrane.Side) {
	m.WrappersCreated.WithLabelValues(from.String()).Inc()
	m.mu.Lock()
	m.snapshot.WrappersCreated++
	m.mu.Unlock()
}

// Revoked implements membrane.Observer.
func (m *Metrics) Revoked(severed int) {
	m.Revocations.Inc()
	m.WrappersRevoked.Add(float64(severed))
	m.mu.Lock()
	m.snapshot.WrappersRevoked += int64(severed)
	m.mu.Unlock()
}

// IsolationBreach implements membrane.Observer.
func (m *Metrics) IsolationBreach(property string) {
	m.IsolationBreaches.WithLabelValues(property).Inc()
	m.mu.Lock()
	m.snapshot.IsolationBreaches++
	m.mu.Unlock()
}

// RunCompleted records a finished scenario run.
func (m *Metrics) RunCompleted(scenario, verdict string) {
	m.Runs.WithLabelValues(scenario, verdict).Inc()
	m.mu.Lock()
	m.snapshot.Runs++
	m.mu.Unlock()
}

// RealmCollected records the collection of a foreign realm object.
func (m *Metrics) RealmCollected(kind string) {
	m.RealmsCollected.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.RealmsCollected++
	m.mu.Unlock()
}

// ActiveRuns sets the number of runs still holding a live realm.
func (m *Metrics) ActiveRuns(n int) {
	m.RunsActive.Set(float64(n))
	m.mu.Lock()
	m.snapshot.RunsActive = int64(n)
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns the current values for the JSON API.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	s := m.snapshot
	m.mu.RUnlock()
	if s.TotalRequests > 0 {
		s.AvgRequestSeconds = s.totalDuration / float64(s.TotalRequests)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}

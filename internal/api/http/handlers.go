package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/membrane/internal/scenario"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handlers contains HTTP request handlers
type Handlers struct {
	runner  *scenario.Runner
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handlers instance
func NewHandlers(runner *scenario.Runner, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{runner: runner, metrics: metrics}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/scenarios", h.ListScenarios)
	r.POST("/scenarios", h.PutScenario)
	r.GET("/scenarios/:id", h.GetScenario)

	r.POST("/runs", h.StartRun)
	r.GET("/runs", h.ListRuns)
	r.POST("/runs/detach", h.DetachAll)
	r.GET("/runs/:id", h.GetRun)
	r.GET("/runs/:id/console", h.RunConsole)
	r.POST("/runs/:id/revoke", h.RevokeRun)
	r.POST("/runs/:id/detach", h.DetachRun)
	r.POST("/gc", h.CollectGarbage)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
		r.GET("/metrics/json", h.MetricsJSON)
	}
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "membrane",
		"version": Version,
	})
}

// Health handles health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"scenarios": len(h.runner.Catalog().IDs()),
		"runs":      len(h.runner.List()),
	})
}

// ListScenarios returns the catalog
func (h *Handlers) ListScenarios(c *gin.Context) {
	scenarios := h.runner.Catalog().List()
	c.JSON(http.StatusOK, gin.H{
		"scenarios":   scenarios,
		"count":       len(scenarios),
		"quarantined": h.runner.Quarantined(),
	})
}

// GetScenario returns one scenario
func (h *Handlers) GetScenario(c *gin.Context) {
	s, err := h.runner.Catalog().Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// PutScenario adds a scenario to the catalog, replacing one with the same ID
func (h *Handlers) PutScenario(c *gin.Context) {
	var s scenario.Scenario
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scenario format"})
		return
	}
	if err := h.runner.Catalog().Put(s); err != nil {
		fail(c, err)
		return
	}
	h.runner.ResetQuarantine(s.ID)
	c.JSON(http.StatusCreated, s)
}

// fail writes err with the status its kind maps to.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scenario.ErrScenarioNotFound), errors.Is(err, scenario.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, scenario.ErrInvalidScenario):
		return http.StatusBadRequest
	case errors.Is(err, scenario.ErrTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, scenario.ErrQuarantined):
		return http.StatusConflict
	case errors.Is(err, scenario.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

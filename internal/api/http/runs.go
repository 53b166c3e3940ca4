package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/membrane/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/membrane/internal/shared/id"
)

// StartRunRequest selects the scenario to execute
type StartRunRequest struct {
	Scenario string `json:"scenario" binding:"required"`
}

// StartRun executes a scenario and returns the finished run
func (h *Handlers) StartRun(c *gin.Context) {
	var req StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run request format"})
		return
	}

	ctx := c.Request.Context()
	tracing.Annotate(ctx, "scenario", req.Scenario)
	run, err := h.runner.Start(ctx, req.Scenario)
	if err != nil {
		fail(c, err)
		return
	}
	tracing.Annotate(ctx, "run", run.ID.String())
	tracing.Annotate(ctx, "verdict", string(run.Verdict))
	c.JSON(http.StatusCreated, run)
}

// ListRuns returns the retained runs, oldest first
func (h *Handlers) ListRuns(c *gin.Context) {
	runs := h.runner.List()
	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.runner.Get(runID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// RunConsole returns the console output both realms produced during a run
func (h *Handlers) RunConsole(c *gin.Context) {
	run, err := h.runner.Get(runID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":     run.ID,
		"entries": run.Console,
		"count":   len(run.Console),
	})
}

// RevokeRun revokes the run's membrane
func (h *Handlers) RevokeRun(c *gin.Context) {
	run, err := h.runner.Revoke(runID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// DetachRun drops the runner's reference to the run's foreign realm
func (h *Handlers) DetachRun(c *gin.Context) {
	run, err := h.runner.Detach(runID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// DetachAll detaches every retained run
func (h *Handlers) DetachAll(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"detached": h.runner.DetachAll(),
	})
}

// CollectGarbage forces a collection cycle. Realms that became unreachable
// show up as collected in later run snapshots and on the event stream.
func (h *Handlers) CollectGarbage(c *gin.Context) {
	start := time.Now()
	h.runner.CollectGarbage()
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"duration_ms": time.Since(start).Milliseconds(),
		"timestamp":   time.Now().Unix(),
	})
}

func runID(c *gin.Context) id.RunID {
	return id.RunID(c.Param("id"))
}

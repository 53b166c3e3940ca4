package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/membrane/internal/scenario"
)

// RunSummary counts retained runs by verdict and collection state
type RunSummary struct {
	Total     int                      `json:"total"`
	Collected int                      `json:"collected"`
	Revoked   int                      `json:"revoked"`
	Verdicts  map[scenario.Verdict]int `json:"verdicts"`
}

// MetricsJSON returns the metrics snapshot together with a run summary
func (h *Handlers) MetricsJSON(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics": h.metrics.Snapshot(),
		"runs":    summarize(h.runner.List()),
	})
}

func summarize(runs []scenario.Run) RunSummary {
	s := RunSummary{Total: len(runs), Verdicts: make(map[scenario.Verdict]int)}
	for _, r := range runs {
		s.Verdicts[r.Verdict]++
		if r.Revoked {
			s.Revoked++
		}
		if r.Collected() {
			s.Collected++
		}
	}
	return s
}

package debugapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/backend/internal/core"
	"github.com/GriffinCanCode/AgentOS/backend/internal/telemetry"
)

type handlers struct {
	kernel  *core.Core
	metrics *telemetry.Metrics
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "kerneld",
		"status":  "running",
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// stats reports a point-in-time snapshot of live handle and mapping counts.
// It is deliberately separate from /metrics: this is a cheap, human-readable
// poke for operators; Prometheus scraping should use /metrics instead.
func (h *handlers) stats(c *gin.Context) {
	if h.metrics != nil {
		h.metrics.RefreshUptime()
	}
	snap := h.kernel.Stats()
	if h.metrics != nil {
		h.metrics.HandlesActive.Set(float64(snap.HandlesActive))
		h.metrics.MappingsActive.Set(float64(snap.MappingsActive))
	}
	c.JSON(http.StatusOK, gin.H{
		"handles_active":  snap.HandlesActive,
		"mappings_active": snap.MappingsActive,
	})
}

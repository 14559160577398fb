package api

import (
	"net/http"

	"github.com/okian/kartpos/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider reports tracker counters for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// MonitorHandler serves the Prometheus exposition and the tracker stats.
type MonitorHandler struct {
	stats   StatsProvider
	exposer http.Handler
}

// NewMonitorHandler creates a monitor handler exposing the kartpos registry.
func NewMonitorHandler(stats StatsProvider) *MonitorHandler {
	return &MonitorHandler{
		stats:   stats,
		exposer: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandleHealth handles GET /healthz by serving the metrics registry.
func (h *MonitorHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.exposer.ServeHTTP(w, r)
}

// HandleStats handles GET /stats requests.
func (h *MonitorHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}

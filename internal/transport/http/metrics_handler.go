package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"etlinspector/internal/operations"
	"etlinspector/internal/websocket"
)

// HubStats reports WebSocket fan-out counters.
type HubStats interface {
	Stats() websocket.HubStats
}

// QueueStats reports job queue occupancy.
type QueueStats interface {
	Stats() operations.QueueStats
}

// MetricsHandler serves the Prometheus scrape endpoint and a JSON summary
// of the runtime components.
type MetricsHandler struct {
	prom  http.Handler
	queue QueueStats
	hub   HubStats
	start time.Time
}

// NewMetricsHandler creates a new metrics handler. A nil prom handler falls
// back to promhttp.Handler on the default registry; queue and hub may be nil.
func NewMetricsHandler(prom http.Handler, queue QueueStats, hub HubStats) *MetricsHandler {
	if prom == nil {
		prom = promhttp.Handler()
	}
	return &MetricsHandler{prom: prom, queue: queue, hub: hub, start: time.Now()}
}

// RegisterRoutes adds /metrics and /stats to r.
func (h *MetricsHandler) RegisterRoutes(r chi.Router) {
	r.Method(http.MethodGet, "/metrics", h.prom)
	r.Get("/stats", h.GetStats)
}

// GetStats handles GET /stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"uptime_seconds": time.Since(h.start).Seconds(),
	}
	if h.queue != nil {
		response["jobs"] = h.queue.Stats()
	}
	if h.hub != nil {
		response["websocket"] = h.hub.Stats()
	}
	render.JSON(w, r, response)
}

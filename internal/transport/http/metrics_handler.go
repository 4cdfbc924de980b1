package http

import (
	"net/http"

	apierrors "stocktake/internal/errors"
)

// MetricsHandler serves the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler wraps the Prometheus handler. A nil handler means metrics
// export is disabled and the endpoint answers 503.
func NewMetricsHandler(exporter http.Handler) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		apierrors.WriteError(w, apierrors.New(http.StatusServiceUnavailable, "METRICS_DISABLED", "Metrics export is disabled"))
		return
	}
	h.exporter.ServeHTTP(w, r)
}

package main

import (
	"encoding/json"
	"net/http"

	"github.com/c360studio/semstreams/component"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// httpComponent is the part of the job-launcher the HTTP server mounts.
type httpComponent interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
	Health() component.HealthStatus
}

// newMux mounts the launcher endpoints under prefix, plus /health and
// /metrics at the root.
func newMux(comp httpComponent, prefix string, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	comp.RegisterHTTPHandlers(prefix, mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		health := comp.Health()
		w.Header().Set("Content-Type", "application/json")
		if !health.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"healthy": health.Healthy,
			"status":  health.Status,
			"uptime":  health.Uptime.String(),
		})
	})
	return mux
}

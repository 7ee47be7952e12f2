package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/attolytics/attolytics/internal/handlers"
	"github.com/attolytics/attolytics/internal/middleware"
)

// NewRouter constructs a ServeMux with ingestion API routes registered.
func NewRouter(h *handlers.EventsHandler) http.Handler {
	mux := http.NewServeMux()

	// Ingestion endpoint
	mux.HandleFunc("POST /apps/{tenant}/events", h.HandleSubmit)
	mux.HandleFunc("OPTIONS /apps/{tenant}/events", h.HandlePreflight)

	// Health endpoints
	mux.HandleFunc("GET /healthz", h.Health)
	mux.HandleFunc("GET /readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}

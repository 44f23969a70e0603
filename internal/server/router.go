package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davidfries/hooky/internal/handlers"
	"github.com/davidfries/hooky/internal/middleware"
)

// NewRouter constructs a ServeMux with all API and capture routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Endpoint registry API
	mux.HandleFunc("/api/endpoints", h.Endpoints)
	mux.HandleFunc("/api/endpoints/", h.EndpointByID)

	// Webhook capture surface
	mux.HandleFunc("/hook/", h.Capture)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	cors := middleware.CORS(middleware.DefaultCORS())
	return middleware.RequestID(cors(mux))
}

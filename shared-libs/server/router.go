package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TeacherRG/chitas-for-kids-sub000/shared-libs/dto"
)

// RouterConfig names the service for /healthz and selects where HTTP metrics go.
type RouterConfig struct {
	Service  string
	Version  string
	Registry *prometheus.Registry
}

// NewRouter returns a chi router pre-configured with default middleware, a health endpoint
// and, when a registry is supplied, request metrics served on /metrics.
func NewRouter(cfg RouterConfig, register func(r chi.Router)) *chi.Mux {
	started := time.Now().UTC()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.Registry != nil {
		r.Use(newHTTPMetrics(cfg.Registry).middleware)
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, dto.HealthResponse{
			Status:    "ok",
			Service:   cfg.Service,
			Version:   cfg.Version,
			StartedAt: started,
		})
	})

	if register != nil {
		register(r)
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package kit

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

// NewRouter returns a chi router with the middleware every service shares:
// request id, panic recovery, request logging and, when a registry is given,
// HTTP metrics plus a token-guarded /metrics.
func NewRouter(deps HTTPDeps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(Recoverer)
	r.Use(Logging(deps.Log))

	if deps.Registry == nil {
		return r
	}

	metrics := NewMetrics(deps.Registry, deps.Service)
	r.Use(metrics.Middleware(deps.Service, ChiRoutePatternOrPath))

	if deps.MetricsEnabled {
		r.With(MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"GlobalBooks/pkg/kit"
)

const notInitializedMsg = "Catalog service not initialized"

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Mount("/", s.Routes())
	return r
}

// NotInitializedHandler serves the API while the service could not be
// constructed at startup: every product route fails with 500 and readiness
// reports 503, but the process stays up and observable.
func NotInitializedHandler(deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	fail := func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusInternalServerError, notInitializedMsg, nil)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		kit.WriteError(w, r, http.StatusServiceUnavailable, notInitializedMsg, nil)
	})
	for _, prefix := range []string{"/products", "/api/products"} {
		r.HandleFunc(prefix, fail)
		r.HandleFunc(prefix+"/*", fail)
	}
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r.Use(chimw.RequestID)
	r.Use(kit.Logging(log))
	if deps.Registry != nil {
		// Outside the recoverer, so panicked requests are counted as 500s.
		r.Use(kit.NewMetrics(deps.Registry).Middleware(deps.Service, kit.RoutePatternOrPath))
	}
	r.Use(kit.Recoverer(log))
}

// setupMetrics exposes the registry; setupMiddleware already instruments it.
func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil || !deps.MetricsEnabled {
		return
	}

	h := promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})
	if deps.MetricsToken != "" {
		h = kit.MetricsAuth(deps.MetricsToken)(h)
	}
	r.Handle("/metrics", h)
}

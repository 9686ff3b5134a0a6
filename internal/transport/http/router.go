package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fdctax/internal/platform/metrics"
	"fdctax/internal/platform/middleware"
	dErrors "fdctax/pkg/domain-errors"
	"fdctax/pkg/platform/httputil"
	"fdctax/pkg/platform/middleware/metadata"
	"fdctax/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// Config is what the router needs beyond the feature handlers.
type Config struct {
	Environment string
	Project     string
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Clock       func() time.Time
	// Checks back /api/health/ready, keyed by dependency name.
	Checks map[string]CheckFunc
}

// NewRouter wires the shared middleware chain, health and metrics endpoints,
// then mounts each feature handler.
func NewRouter(cfg Config, handlers ...Registrar) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(requesttime.Middleware(cfg.Clock))
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
	})

	r.Get("/api/health", healthHandler(cfg))
	r.Get("/api/health/ready", readinessHandler(cfg.Checks))
	r.Handle("/metrics", cfg.Metrics.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

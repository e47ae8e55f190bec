package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/karyana-pos/karyana-pos/internal/auth"
	"github.com/karyana-pos/karyana-pos/internal/catalog"
	"github.com/karyana-pos/karyana-pos/internal/ledger"
	"github.com/karyana-pos/karyana-pos/internal/observability"
	"github.com/karyana-pos/karyana-pos/internal/sales"
	"github.com/karyana-pos/karyana-pos/internal/settings"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	CatalogHandler  *catalog.Handler
	LedgerHandler   *ledger.Handler
	SalesHandler    *sales.Handler
	SettingsHandler *settings.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.AuthHandler.Middleware)
			params.AuthHandler.MountUserRoutes(r)
			params.CatalogHandler.MountRoutes(r)
			params.LedgerHandler.MountRoutes(r)
			params.SalesHandler.MountRoutes(r)
			params.SettingsHandler.MountRoutes(r)
		})
	})

	return r
}

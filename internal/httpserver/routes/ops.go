package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/mw"
)

func init() { Register(registerOps) }

// registerOps mounts the operator endpoints. Liveness stays public for the
// orchestrator; everything else is limited to the allowed networks, and the
// endpoints an operator calls by hand also to the allowed hosts.
func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	internal := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	internal.Get("/readyz", handlers.Readyz(d))
	if d.Metrics != nil {
		internal.Handle("/metrics", d.Metrics.Handler())
	}

	manual := internal.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	manual.Get("/infra", handlers.Infra(d))
	manual.Post("/reload", handlers.Reload(d))
}

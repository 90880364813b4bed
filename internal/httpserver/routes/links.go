package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
)

func init() { Register(registerLinks) }

func registerLinks(r chi.Router, d deps.Deps) {
	r.Route("/dashboard/redirect-links", func(r chi.Router) {
		r.Get("/", handlers.Links(d))
		r.Post("/edit/{id}", handlers.LinkEdit(d))
		r.Post("/delete/{id}", handlers.LinkDelete(d))

		r.Get("/visits/{id}", handlers.Visits(d))
		r.Post("/visits/{id}/delete", handlers.VisitsDelete(d))

		r.Get("/{slug}", handlers.LinkDetails(d))
		r.Get("/{slug}/export.csv", handlers.LinkExportCSV(d))
		r.Get("/{slug}/qr.png", handlers.LinkQR(d))
	})
}

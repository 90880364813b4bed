package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
)

func init() { Register(registerDashboard) }

func registerDashboard(r chi.Router, d deps.Deps) {
	r.Get("/dashboard", handlers.Dashboard(d))

	r.Route("/dashboard/setting", func(r chi.Router) {
		r.Get("/", handlers.Setting(d))
		r.Post("/language", handlers.SetLanguage(d))
		r.Post("/password", handlers.ChangePassword(d))
	})
}

package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
)

func init() { Register(registerFollowUps) }

func registerFollowUps(r chi.Router, d deps.Deps) {
	r.Route("/dashboard/follow-up", func(r chi.Router) {
		r.Get("/", handlers.FollowUps(d))
		r.Post("/edit/{id}", handlers.FollowUpEdit(d))
		r.Post("/delete/{id}", handlers.FollowUpDelete(d))
	})
}

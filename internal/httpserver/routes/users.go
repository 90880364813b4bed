package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
)

func init() { Register(registerUsers) }

func registerUsers(r chi.Router, d deps.Deps) {
	r.Route("/dashboard/users", func(r chi.Router) {
		r.Get("/", handlers.Users(d))
		r.Post("/create", handlers.UserCreate(d))
		r.Post("/edit/{id}", handlers.UserEdit(d))
		r.Post("/remove/{id}", handlers.UserRemove(d))
		r.Post("/status", handlers.UsersStatus(d))
		r.Get("/{username}", handlers.UserDetails(d))
	})
}

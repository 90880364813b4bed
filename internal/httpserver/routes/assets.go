package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/web"
)

func init() { Register(registerAssets) }

func registerAssets(r chi.Router, d deps.Deps) {
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	if d.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(d.UploadDir))))
	}
}

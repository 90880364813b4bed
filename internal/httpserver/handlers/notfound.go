package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
)

func NotFound(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := newPage(d, r, commonNS, "not_found", "")
		render(d, w, r, http.StatusNotFound, "not_found", p)
	}
}

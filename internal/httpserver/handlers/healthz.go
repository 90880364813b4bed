package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	Store         string  `json:"store,omitempty"`
	Uploads       string  `json:"uploads,omitempty"`
	Languages     int     `json:"languages"`
}

// Healthz is the liveness check: it never calls a dependency, it only says
// the process serves and which backends it was wired with.
func Healthz(d deps.Deps) http.HandlerFunc {
	resp := healthzResponse{
		Status:    "ok",
		Version:   d.Version,
		Commit:    d.Commit,
		BuildDate: d.BuildDate,
		GoVersion: d.GoVersion,
	}
	if d.Store != nil {
		resp.Store = d.Store.Name()
	}
	if d.Files != nil {
		resp.Uploads = d.Files.Name()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		out := resp
		out.UptimeSeconds = d.Now().Sub(d.StartTime).Round(time.Second).Seconds()
		if d.Catalog != nil {
			out.Languages = len(d.Catalog.Languages())
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(out)
	}
}

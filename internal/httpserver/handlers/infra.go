package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
)

type componentStatus struct {
	OK         bool     `json:"ok"`
	Mode       string   `json:"mode,omitempty"`
	Languages  []string `json:"languages,omitempty"`
	LastReload string   `json:"last_reload,omitempty"`
	Impact     string   `json:"impact,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		var api pinger
		if d.Backend != nil {
			api = d.Backend
		}
		components := map[string]componentStatus{
			"backend": ping(r.Context(), api, "http", "screens-show-errors"),
			"store":   ping(r.Context(), d.Store, "", "sign-in-disabled"),
			"files":   ping(r.Context(), d.Files, "", "uploads-disabled"),
			"locales": localeStatus(d),
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

// determineMode is critical when sessions cannot be stored, degraded when
// anything else is down.
func determineMode(components map[string]componentStatus) string {
	if c, ok := components["store"]; ok && !c.OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "operational"
}

type pinger interface {
	Ping(ctx context.Context) error
}

type named interface {
	Name() string
}

func ping(parent context.Context, p pinger, mode, impact string) componentStatus {
	if p == nil {
		return componentStatus{OK: false, Impact: impact, Error: "not configured"}
	}
	if n, ok := p.(named); ok {
		mode = n.Name()
	}

	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: mode, Impact: impact, Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: mode}
}

func localeStatus(d deps.Deps) componentStatus {
	if d.Catalog == nil {
		return componentStatus{OK: false, Error: "not configured"}
	}
	loaded := d.Catalog.LoadedAt()
	if loaded.IsZero() {
		return componentStatus{OK: false, LastReload: "never", Impact: "keys-shown-raw"}
	}
	mode := "embedded"
	if d.Catalog.OverrideDir() != "" {
		mode = "embedded+override"
	}
	return componentStatus{
		OK:         true,
		Mode:       mode,
		Languages:  d.Catalog.Languages(),
		LastReload: loaded.Format("2006-01-02 15:04:05"),
	}
}

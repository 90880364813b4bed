// Package web renders the dashboard screens from embedded html/template views.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/export"
	"github.com/MrSnakeDoc/linkdash/internal/i18n"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

//go:embed templates static
var files embed.FS

// Pages rendered inside the shared layout.
var pages = []string{
	"login",
	"forgot_password",
	"password_reset",
	"dashboard",
	"links",
	"link_details",
	"visits",
	"users",
	"user_details",
	"followups",
	"setting",
	"not_found",
}

// Page is the data every template receives.
type Page struct {
	Lang      string
	Languages []string
	// NS is the locale namespace of the screen.
	NS    string
	Title string
	// Nav marks the active sidebar entry.
	Nav              string
	Path             string
	Admin            *domain.UserRef
	Flashes          []session.Flash
	PendingFollowUps int
	// PendingKnown is set by the follow-up screen when its own rows already
	// gave the badge count.
	PendingKnown bool
	Data         any
}

func (p *Page) Authenticated() bool { return p.Admin != nil }

type Renderer struct {
	pages map[string]*template.Template
}

func New(catalog *i18n.Catalog, linkBase string) (*Renderer, error) {
	funcs := template.FuncMap{
		"t": catalog.T,
		"tc": func(lang, key string, args ...any) string {
			return catalog.T(lang, "common", key, args...)
		},
		"date":     formatDate,
		"shortURL": func(slug string) string { return export.ShortURL(linkBase, slug) },
		"url":      buildURL,
		"pct":      percent,
		"dict":     dict,
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never
// produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p *Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and scripts.
func Static() http.Handler {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// buildURL appends name, value pairs to path, skipping empty values.
func buildURL(path string, pairs ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			v.Set(pairs[i], pairs[i+1])
		}
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}

func percent(v, max int64) int64 {
	if max <= 0 {
		return 0
	}
	return v * 100 / max
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		k, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[k] = pairs[i+1]
	}
	return m, nil
}

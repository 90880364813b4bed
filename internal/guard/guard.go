// Package guard decides, from the authentication state alone, whether a
// navigation is allowed. It is recomputed on every request and keeps no
// history.
package guard

import (
	"net/http"
	"strings"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Decision is the outcome of Resolve. A zero Redirect means allow.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

var allow = Decision{}

func redirect(to string) Decision { return Decision{Redirect: to} }

// publicPrefixes are reachable whatever the authentication state.
var publicPrefixes = []string{
	"/static/",
	"/uploads/",
	"/healthz",
	"/readyz",
	"/infra",
	"/reload",
	"/metrics",
	"/logout",
}

// guestOnly routes send authenticated admins back to the dashboard.
var guestOnly = []string{
	LoginPath,
	"/forgot-password",
	"/password-reset/",
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == strings.TrimSuffix(p, "/") || strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isProtected(path string) bool {
	return path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/")
}

// Resolve maps (path, authenticated) to a decision. Paths that are neither
// public, guest-only nor protected are allowed through so the router can
// answer with its not-found page.
func Resolve(path string, authenticated bool) Decision {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch {
	case path == "/":
		if authenticated {
			return redirect(DashboardPath)
		}
		return redirect(LoginPath)
	case hasPrefix(path, publicPrefixes):
		return allow
	case hasPrefix(path, guestOnly):
		if authenticated {
			return redirect(DashboardPath)
		}
		return allow
	case isProtected(path):
		if !authenticated {
			return redirect(LoginPath)
		}
		return allow
	default:
		return allow
	}
}

// Middleware applies Resolve to every request. authenticated reads the
// state of the current request, typically from its session.
func Middleware(authenticated func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Resolve(r.URL.Path, authenticated(r))
			if d.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
		})
	}
}

package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/utils"
)

// AllowOnlyCIDRS limits the operator endpoints (/readyz, /infra, /reload,
// /metrics) to an IP/CIDR allow-list. An empty list lets everyone through.
// trustProxy makes the client address come from proxy headers.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if m.Allow(ip) {
				next.ServeHTTP(w, r)
				return
			}
			log.Warn("operator endpoint refused",
				logger.String("ip", ip),
				logger.String("path", r.URL.Path),
				logger.Bool("trust_proxy", trustProxy))
			w.Header().Set("Cache-Control", "no-store")
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

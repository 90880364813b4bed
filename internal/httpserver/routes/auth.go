package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/mw"
)

func init() { Register(registerAuth) }

func registerAuth(r chi.Router, d deps.Deps) {
	throttle := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.LoginBurst,
		RefillPerIPPerMin: d.LoginRefill,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Rejected:          handlers.LoginThrottled(d),
	})

	r.Get("/login", handlers.LoginPage(d))
	r.With(throttle).Post("/login", handlers.Login(d))
	r.Post("/logout", handlers.Logout(d))
	r.Get("/forgot-password", handlers.ForgotPasswordPage(d))
	r.With(throttle).Post("/forgot-password", handlers.ForgotPassword(d))
	r.Get("/password-reset/{token}", handlers.PasswordResetPage(d))
	r.Post("/password-reset/{token}", handlers.PasswordReset(d))
	r.Post("/language", handlers.SetLanguage(d))
}

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/guard"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

type authView struct {
	Form *form.State
}

func showAuth(d deps.Deps, w http.ResponseWriter, r *http.Request, page, title string, st *form.State, status int) {
	p := newPage(d, r, "login", title, "")
	p.Data = authView{Form: st}
	render(d, w, r, status, page, p)
}

func LoginPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showAuth(d, w, r, "login", "title", form.Login.New(nil), http.StatusOK)
	}
}

// Login exchanges the credentials for a token and stores it in the session.
// Non-admin accounts are refused even when the backend accepted them.
func Login(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		st, err := form.Login.Bind(r)
		if err != nil || s == nil {
			showAuth(d, w, r, "login", "title", form.Login.New(nil), http.StatusBadRequest)
			return
		}

		api := d.Backend.For(nil)
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			res, err := api.Login(ctx, st.Get("email"), st.Get("password"))
			if err != nil {
				return "", err
			}
			if err := s.SetToken(ctx, res.JWT, res.User); err != nil {
				return "", err
			}
			return res.Message, nil
		})
		if err != nil {
			status := http.StatusUnprocessableEntity
			switch {
			case errors.Is(err, backend.ErrNotAdmin):
				st.Message = "err_not_admin"
				status = http.StatusForbidden
			case errors.Is(err, backend.ErrUnauthorized):
				status = http.StatusUnauthorized
			case errors.Is(err, backend.ErrNetwork):
				st.Message = "err_backend_unavailable"
				status = http.StatusBadGateway
			}
			st.ClearSecrets()
			d.Logger.Info("login refused",
				logger.String("email", st.Get("email")),
				logger.Error(err))
			showAuth(d, w, r, "login", "title", st, status)
			return
		}

		d.Logger.Info("admin signed in", logger.String("email", st.Get("email")))
		flash(d, r, session.FlashSuccess, msg, "")
		redirect(w, r, guard.DashboardPath)
	}
}

// LoginThrottled answers a rate-limited login attempt.
func LoginThrottled(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := form.Login.New(nil)
		st.Message = "err_rate_limited"
		showAuth(d, w, r, "login", "title", st, http.StatusTooManyRequests)
	}
}

func Logout(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s := session.FromContext(r.Context()); s != nil {
			if err := s.Clear(r.Context()); err != nil {
				d.Logger.Warn("failed to clear session", logger.Error(err))
			}
			flash(d, r, session.FlashInfo, "", "logged_out")
		}
		redirect(w, r, guard.LoginPath)
	}
}

func ForgotPasswordPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showAuth(d, w, r, "forgot_password", "forgot_title", form.ForgotPassword.New(nil), http.StatusOK)
	}
}

func ForgotPassword(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := form.ForgotPassword.Bind(r)
		if err != nil {
			showAuth(d, w, r, "forgot_password", "forgot_title", form.ForgotPassword.New(nil), http.StatusBadRequest)
			return
		}
		api := d.Backend.For(nil)
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.ForgotPassword(ctx, st.Get("email"))
		})
		if err != nil {
			showAuth(d, w, r, "forgot_password", "forgot_title", st, http.StatusUnprocessableEntity)
			return
		}
		flash(d, r, session.FlashSuccess, msg, "reset_link_sent")
		redirect(w, r, guard.LoginPath)
	}
}

func PasswordResetPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showAuth(d, w, r, "password_reset", "reset_title", form.PasswordReset.New(nil), http.StatusOK)
	}
}

func PasswordReset(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		st, err := form.PasswordReset.Bind(r)
		if err != nil {
			showAuth(d, w, r, "password_reset", "reset_title", form.PasswordReset.New(nil), http.StatusBadRequest)
			return
		}
		api := d.Backend.For(nil)
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.ResetPassword(ctx, token, st.Get("password"), st.Get("confirmPassword"))
		})
		if err != nil {
			st.ClearSecrets()
			showAuth(d, w, r, "password_reset", "reset_title", st, http.StatusUnprocessableEntity)
			return
		}
		flash(d, r, session.FlashSuccess, msg, "password_reset_done")
		redirect(w, r, guard.LoginPath)
	}
}

// SetLanguage stores the language preference, signed in or not.
func SetLanguage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ret := safeReturn(r.FormValue("return"), "/")
		st := form.Language.BindValues(r.PostForm, nil)
		lang := st.Get("language")
		s := session.FromContext(r.Context())
		if !st.Validate() || !d.Catalog.Supported(lang) || s == nil {
			redirect(w, r, ret)
			return
		}
		if err := s.SetLanguage(r.Context(), lang); err != nil {
			d.Logger.Warn("failed to store language", logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, ret)
			return
		}
		flash(d, r, session.FlashSuccess, "", "language_changed")
		redirect(w, r, ret)
	}
}

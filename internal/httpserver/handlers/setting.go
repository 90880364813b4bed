package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

const settingPath = "/dashboard/setting"

type settingView struct {
	Password      *form.State
	Version       string
	LocalesLoaded time.Time
}

func showSetting(d deps.Deps, w http.ResponseWriter, r *http.Request, st *form.State, status int) {
	p := newPage(d, r, "setting", "setting", "setting")
	p.Data = settingView{
		Password:      st,
		Version:       d.Version,
		LocalesLoaded: d.Catalog.LoadedAt(),
	}
	render(d, w, r, status, "setting", p)
}

func Setting(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showSetting(d, w, r, form.ChangePassword.New(nil), http.StatusOK)
	}
}

func ChangePassword(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := form.ChangePassword.Bind(r)
		if err != nil {
			flashError(d, r, err)
			redirect(w, r, settingPath)
			return
		}

		api := apiFor(d, r)
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.ChangePassword(ctx, st.PasswordChange())
		})
		if err != nil {
			st.ClearSecrets()
			showSetting(d, w, r, st, http.StatusUnprocessableEntity)
			return
		}

		invalidate(d, r, listview.PasswordChange)
		flash(d, r, session.FlashSuccess, msg, "password_changed")
		redirect(w, r, settingPath)
	}
}

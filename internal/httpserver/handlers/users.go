package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

const usersPath = "/dashboard/users"

var userColumns = []listview.Column{
	{Key: "name", Label: "name"},
	{Key: "username", Label: "username"},
	{Key: "email", Label: "email"},
	{Key: "status", Label: "status"},
	{Key: "created", Label: "created"},
}

type usersView struct {
	Search string
	Table  listview.Table[domain.User]
	Dialog domain.DialogState
	Target *domain.User
	Form   *form.State
	Self   string
	Stale  bool
}

func usersQuery(search string) listview.Query {
	return listview.NewQuery(domain.KindUser, "search", search)
}

func userIDs(rows []domain.User) []string {
	ids := make([]string, len(rows))
	for i, u := range rows {
		ids[i] = u.ID
	}
	return ids
}

func Users(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showUsers(d, w, r, r.URL.Query(), nil, http.StatusOK)
	}
}

func showUsers(d deps.Deps, w http.ResponseWriter, r *http.Request, values url.Values, st *form.State, status int) {
	search := strings.TrimSpace(values.Get("search"))
	dialog := domain.ParseDialog(values.Get("dialog"), values.Get("id"))

	p := newPage(d, r, "userList", "user_lists", "users")
	api := apiFor(d, r)
	q := usersQuery(search)
	res, done := loadList(d, w, r, p, screenLoad{screen: "users", path: usersPath, tagged: r.Method == http.MethodGet}, q,
		func(ctx context.Context) ([]domain.User, error) {
			return api.ListUsers(ctx, search)
		})
	if done {
		return
	}

	v := usersView{
		Search: search,
		Table: listview.Table[domain.User]{
			Kind:       domain.KindUser,
			Columns:    userColumns,
			Rows:       res.Rows,
			Selectable: true,
			Selection:  listview.ParseSelection(values, "ids").Reconcile(userIDs(res.Rows)),
		},
		Dialog: dialog,
		Self:   selfURL(usersPath, q),
		Stale:  res.Stale,
	}

	switch {
	case dialog.Is(domain.DialogCreate):
		v.Form = st
		if v.Form == nil {
			v.Form = form.UserCreate.New(nil)
		}
	case dialog.Open():
		for i := range res.Rows {
			if res.Rows[i].ID == dialog.Target {
				v.Target = &res.Rows[i]
				break
			}
		}
		switch {
		case v.Target == nil:
			v.Dialog = domain.DialogState{}
		case st != nil:
			st.Keep(form.UserValues(*v.Target))
			v.Form = st
		case dialog.Is(domain.DialogEdit):
			v.Form = form.UserEdit.New(form.UserValues(*v.Target))
		}
	}
	p.Data = v
	render(d, w, r, status, "users", p)
}

// rejectUserForm puts a failed create or edit back into its dialog.
func rejectUserForm(d deps.Deps, w http.ResponseWriter, r *http.Request, ret string, mode domain.DialogMode, id string, st *form.State) {
	values := returnValues(ret)
	values.Set("dialog", string(mode))
	if id != "" {
		values.Set("id", id)
	}
	showUsers(d, w, r, values, st, http.StatusUnprocessableEntity)
}

func UserCreate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := form.UserCreate.Bind(r)
		ret := safeReturn(r.FormValue("return"), usersPath)
		if err != nil {
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogCreate, ""))
			return
		}

		api := apiFor(d, r)
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.CreateUser(ctx, st.UserCreate())
		})
		if err != nil {
			st.ClearSecrets()
			rejectUserForm(d, w, r, ret, domain.DialogCreate, "", st)
			return
		}

		d.Logger.Info("user created", logger.String("username", st.Get("username")))
		invalidate(d, r, listview.UserCreate)
		flash(d, r, session.FlashSuccess, msg, "created_ok")
		redirect(w, r, ret)
	}
}

// UserEdit saves the edit dialog. A picked image is uploaded first and its
// reference sent with the update.
func UserEdit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, err := form.UserEdit.Bind(r)
		ret := safeReturn(r.FormValue("return"), usersPath)
		if err != nil {
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogEdit, id))
			return
		}

		api := apiFor(d, r)
		if st.Validate() {
			user, err := storedRecord(d, r, usersQuery(""),
				func(ctx context.Context) ([]domain.User, error) {
					return api.ListUsers(ctx, "")
				},
				func(u domain.User) bool { return u.ID == id })
			if err != nil {
				rejectLookup(d, w, r, ret, id, err)
				return
			}
			st.Keep(form.UserValues(user))
		}
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.UpdateUser(ctx, id, st.UserUpdate())
		})
		if err != nil {
			rejectUserForm(d, w, r, ret, domain.DialogEdit, id, st)
			return
		}

		invalidate(d, r, listview.UserUpdate)
		flash(d, r, session.FlashSuccess, msg, "saved")
		redirect(w, r, ret)
	}
}

func UserRemove(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ret := safeReturn(r.FormValue("return"), usersPath)

		msg, err := apiFor(d, r).RemoveUser(r.Context(), id)
		if err != nil {
			d.Logger.Warn("failed to remove user", logger.String("id", id), logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogDelete, id))
			return
		}

		d.Logger.Info("user removed", logger.String("id", id))
		invalidate(d, r, listview.UserRemove)
		flash(d, r, session.FlashSuccess, msg, "deleted")
		redirect(w, r, ret)
	}
}

// UsersStatus applies the bulk status change to the checked rows that are
// still listed on the screen they were picked from.
func UsersStatus(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := form.UsersStatus.Bind(r)
		ret := safeReturn(r.FormValue("return"), usersPath)
		if err != nil {
			flashError(d, r, err)
			redirect(w, r, ret)
			return
		}

		api := apiFor(d, r)
		search := returnValues(ret).Get("search")
		res := listview.Load(r.Context(), d.Lists, usersQuery(search), sessionTag(r), func(ctx context.Context) ([]domain.User, error) {
			return api.ListUsers(ctx, search)
		})
		sel := listview.ParseSelection(r.PostForm, "ids")
		if res.Err == nil {
			sel = sel.Reconcile(userIDs(res.Rows))
		}

		// keep the checked rows when sending the admin back
		back := func() string {
			u, err := url.Parse(ret)
			if err != nil {
				return ret
			}
			q := u.Query()
			q["ids"] = sel.IDs()
			u.RawQuery = q.Encode()
			return u.RequestURI()
		}

		if sel.Len() == 0 {
			flash(d, r, session.FlashError, "", "err_empty_selection")
			redirect(w, r, ret)
			return
		}
		target, ok := domain.ParseUserStatus(st.Get("status"))
		if !ok {
			flash(d, r, session.FlashError, "", "err_invalid_status")
			redirect(w, r, back())
			return
		}

		msg, err := api.SetUsersStatus(r.Context(), domain.UsersStatus{Status: string(target), UserIDs: sel.IDs()})
		if err != nil {
			d.Logger.Warn("failed to change user status",
				logger.String("status", string(target)),
				logger.Int("count", sel.Len()),
				logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, back())
			return
		}

		invalidate(d, r, listview.UserStatus)
		flash(d, r, session.FlashSuccess, msg, "status_changed")
		redirect(w, r, ret)
	}
}

var userLinkColumns = []listview.Column{
	{Key: "slug", Label: "slug"},
	{Key: "destination", Label: "destination"},
	{Key: "visits", Label: "visits"},
	{Key: "status", Label: "status"},
	{Key: "created", Label: "created"},
}

type userDetailsView struct {
	User  *domain.User
	Links listview.Table[domain.Link]
	Stale bool
}

// UserDetails shows one user with the links they own.
func UserDetails(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")
		p := newPage(d, r, "userDetails", "user_details", "users")
		api := apiFor(d, r)
		q := listview.NewQuery(domain.KindUser, "username", username)
		res, done := loadList(d, w, r, p, screenLoad{screen: "user_details", path: usersPath + "/" + url.PathEscape(username), tagged: true}, q,
			func(ctx context.Context) (*domain.User, error) {
				return api.UserDetails(ctx, username)
			})
		if done {
			return
		}

		v := userDetailsView{
			User:  res.Rows,
			Links: listview.Table[domain.Link]{Kind: domain.KindLink, Columns: userLinkColumns},
			Stale: res.Stale,
		}
		if res.Rows != nil {
			v.Links.Rows = res.Rows.Links
		}
		p.Data = v
		render(d, w, r, http.StatusOK, "user_details", p)
	}
}

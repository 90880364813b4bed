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

const followUpsPath = "/dashboard/follow-up"

var followUpColumns = []listview.Column{
	{Key: "subject", Label: "subject"},
	{Key: "link", Label: "link"},
	{Key: "owner", Label: "owner"},
	{Key: "enabled", Label: "enabled"},
	{Key: "approval", Label: "approval"},
	{Key: "created", Label: "created"},
}

type followUpsView struct {
	Slug     string
	Status   string
	Statuses []domain.StatusFilter
	Table    listview.Table[domain.FollowUp]
	Dialog   domain.DialogState
	Target   *domain.FollowUp
	Form     *form.State
	Self     string
	Stale    bool
}

func followUpQuery(status domain.StatusFilter, slug string) listview.Query {
	return listview.NewQuery(domain.KindFollowUp, "status", string(status), "slug", slug)
}

func FollowUps(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showFollowUps(d, w, r, r.URL.Query(), nil, http.StatusOK)
	}
}

func showFollowUps(d deps.Deps, w http.ResponseWriter, r *http.Request, values url.Values, st *form.State, status int) {
	filter := domain.ParseStatusFilter(values.Get("status"))
	slug := strings.TrimSpace(values.Get("slug"))
	dialog := domain.ParseDialog(values.Get("dialog"), values.Get("id"))

	p := newPage(d, r, "followUp", "follow_up", "followup")
	api := apiFor(d, r)
	q := followUpQuery(filter, slug)
	res, done := loadList(d, w, r, p, screenLoad{screen: "followups", path: followUpsPath, tagged: r.Method == http.MethodGet}, q,
		func(ctx context.Context) ([]domain.FollowUp, error) {
			return api.ListFollowUps(ctx, filter, slug)
		})
	if done {
		return
	}
	if filter == domain.StatusAll && slug == "" && res.Err == nil {
		p.PendingFollowUps = domain.PendingApproval(res.Rows)
		p.PendingKnown = true
	}

	v := followUpsView{
		Slug:     slug,
		Status:   string(filter),
		Statuses: statusFilters,
		Table:    listview.Table[domain.FollowUp]{Kind: domain.KindFollowUp, Columns: followUpColumns, Rows: res.Rows},
		Dialog:   dialog,
		Self:     selfURL(followUpsPath, q),
		Stale:    res.Stale,
	}
	if dialog.Open() {
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
			st.Keep(form.FollowUpValues(*v.Target))
			v.Form = st
		case dialog.Is(domain.DialogEdit):
			v.Form = form.FollowUpEdit.New(form.FollowUpValues(*v.Target))
		}
	}
	p.Data = v
	render(d, w, r, status, "followups", p)
}

// FollowUpEdit saves the edit dialog, approval included.
func FollowUpEdit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, err := form.FollowUpEdit.Bind(r)
		ret := safeReturn(r.FormValue("return"), followUpsPath)
		if err != nil {
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogEdit, id))
			return
		}

		api := apiFor(d, r)
		if st.Validate() {
			fu, err := storedRecord(d, r, followUpQuery(domain.StatusAll, ""),
				func(ctx context.Context) ([]domain.FollowUp, error) {
					return api.ListFollowUps(ctx, domain.StatusAll, "")
				},
				func(f domain.FollowUp) bool { return f.ID == id })
			if err != nil {
				rejectLookup(d, w, r, ret, id, err)
				return
			}
			st.Keep(form.FollowUpValues(fu))
		}
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.UpdateFollowUp(ctx, id, st.FollowUpUpdate())
		})
		if err != nil {
			values := returnValues(ret)
			values.Set("dialog", string(domain.DialogEdit))
			values.Set("id", id)
			showFollowUps(d, w, r, values, st, http.StatusUnprocessableEntity)
			return
		}

		invalidate(d, r, listview.FollowUpUpdate)
		flash(d, r, session.FlashSuccess, msg, "saved")
		redirect(w, r, ret)
	}
}

func FollowUpDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ret := safeReturn(r.FormValue("return"), followUpsPath)

		msg, err := apiFor(d, r).DeleteFollowUp(r.Context(), id)
		if err != nil {
			d.Logger.Warn("failed to delete follow-up", logger.String("id", id), logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogDelete, id))
			return
		}

		invalidate(d, r, listview.FollowUpDelete)
		flash(d, r, session.FlashSuccess, msg, "deleted")
		redirect(w, r, ret)
	}
}

package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

var visitColumns = []listview.Column{
	{Key: "visitor", Label: "visitor"},
	{Key: "ip", Label: "ip"},
	{Key: "visited_at", Label: "visited_at"},
}

type visitsView struct {
	Slug   string
	LinkID string
	Table  listview.Table[domain.Visit]
	Dialog domain.DialogState
	Self   string
	Stale  bool
}

func visitsPath(linkID string) string {
	return linksPath + "/visits/" + url.PathEscape(linkID)
}

func visitIDs(rows []domain.Visit) []string {
	ids := make([]string, len(rows))
	for i, v := range rows {
		ids[i] = v.ID
	}
	return ids
}

// Visits lists the hits of one link. Rows picked for deletion travel in the
// URL so the confirm dialog can show them.
func Visits(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "id")
		values := r.URL.Query()
		path := visitsPath(linkID)

		p := newPage(d, r, "visits", "visits", "links")
		api := apiFor(d, r)
		q := listview.NewQuery(domain.KindVisit, "link", linkID)
		res, done := loadList(d, w, r, p, screenLoad{screen: "visits", path: path, tagged: true}, q,
			func(ctx context.Context) ([]domain.Visit, error) {
				return api.ListVisits(ctx, linkID)
			})
		if done {
			return
		}

		sel := listview.ParseSelection(values, "ids").Reconcile(visitIDs(res.Rows))
		v := visitsView{
			LinkID: linkID,
			Table: listview.Table[domain.Visit]{
				Kind:       domain.KindVisit,
				Columns:    visitColumns,
				Rows:       res.Rows,
				Selectable: true,
				Selection:  sel,
			},
			Dialog: domain.ParseDialog(values.Get("dialog"), values.Get("id")),
			Self:   path,
			Stale:  res.Stale,
		}
		if len(res.Rows) > 0 && res.Rows[0].Link != nil {
			v.Slug = res.Rows[0].Link.Slug
		}
		p.Data = v
		render(d, w, r, http.StatusOK, "visits", p)
	}
}

// VisitsDelete removes the selected visits. Ids that are no longer listed
// are dropped before the call.
func VisitsDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		linkID := chi.URLParam(r, "id")
		path := visitsPath(linkID)
		if err := r.ParseForm(); err != nil {
			flashError(d, r, err)
			redirect(w, r, path)
			return
		}

		api := apiFor(d, r)
		q := listview.NewQuery(domain.KindVisit, "link", linkID)
		res := listview.Load(r.Context(), d.Lists, q, sessionTag(r), func(ctx context.Context) ([]domain.Visit, error) {
			return api.ListVisits(ctx, linkID)
		})
		sel := listview.ParseSelection(r.PostForm, "ids")
		if res.Err == nil {
			sel = sel.Reconcile(visitIDs(res.Rows))
		}
		if sel.Len() == 0 {
			flash(d, r, session.FlashError, "", "err_empty_selection")
			redirect(w, r, path)
			return
		}

		ids := sel.IDs()
		msg, err := api.DeleteVisits(r.Context(), ids)
		if err != nil {
			d.Logger.Warn("failed to delete visits",
				logger.String("link", linkID),
				logger.Int("count", len(ids)),
				logger.Error(err))
			flashError(d, r, err)
			back := url.Values{"dialog": {string(domain.DialogDelete)}, "id": {"selection"}, "ids": ids}
			redirect(w, r, path+"?"+back.Encode())
			return
		}

		invalidate(d, r, listview.VisitDelete)
		flash(d, r, session.FlashSuccess, msg, "visits_deleted", "count", len(ids))
		redirect(w, r, path)
	}
}

package handlers

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/export"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
)

const linksPath = "/dashboard/redirect-links"

var linkColumns = []listview.Column{
	{Key: "slug", Label: "slug"},
	{Key: "destination", Label: "destination"},
	{Key: "owner", Label: "owner"},
	{Key: "visits", Label: "visits"},
	{Key: "emails", Label: "emails"},
	{Key: "status", Label: "status"},
	{Key: "created", Label: "created"},
}

var statusFilters = []domain.StatusFilter{domain.StatusAll, domain.StatusActive, domain.StatusInactive}

type linksView struct {
	Status   string
	Search   string
	Statuses []domain.StatusFilter
	Table    listview.Table[domain.Link]
	Dialog   domain.DialogState
	Target   *domain.Link
	Form     *form.State
	Self     string
	Stale    bool
}

func Links(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showLinks(d, w, r, r.URL.Query(), nil, http.StatusOK)
	}
}

// showLinks renders the links screen for the filters and dialog in values.
// st carries a rejected edit form back into its dialog.
func showLinks(d deps.Deps, w http.ResponseWriter, r *http.Request, values url.Values, st *form.State, status int) {
	filter := domain.ParseStatusFilter(values.Get("status"))
	search := strings.TrimSpace(values.Get("search"))
	dialog := domain.ParseDialog(values.Get("dialog"), values.Get("id"))

	p := newPage(d, r, "redirectLinks", "redirect_links", "links")
	api := apiFor(d, r)
	q := listview.NewQuery(domain.KindLink, "status", string(filter), "search", search)
	res, done := loadList(d, w, r, p, screenLoad{screen: "links", path: linksPath, tagged: r.Method == http.MethodGet}, q,
		func(ctx context.Context) ([]domain.Link, error) {
			return api.ListLinks(ctx, filter, search)
		})
	if done {
		return
	}

	v := linksView{
		Status:   string(filter),
		Search:   search,
		Statuses: statusFilters,
		Table:    listview.Table[domain.Link]{Kind: domain.KindLink, Columns: linkColumns, Rows: res.Rows},
		Dialog:   dialog,
		Self:     selfURL(linksPath, q),
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
			// the row is gone or filtered out
			v.Dialog = domain.DialogState{}
		case st != nil:
			st.Keep(form.LinkValues(*v.Target))
			v.Form = st
		case dialog.Is(domain.DialogEdit):
			v.Form = form.LinkEdit.New(form.LinkValues(*v.Target))
		}
	}
	p.Data = v
	render(d, w, r, status, "links", p)
}

// LinkEdit saves the edit dialog. The image, when one is picked, is uploaded
// before the update is sent.
func LinkEdit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, err := form.LinkEdit.Bind(r)
		ret := safeReturn(r.FormValue("return"), linksPath)
		if err != nil {
			d.Logger.Warn("failed to read link form", logger.String("id", id), logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogEdit, id))
			return
		}

		api := apiFor(d, r)
		if st.Validate() {
			link, err := storedRecord(d, r, listview.NewQuery(domain.KindLink, "status", string(domain.StatusAll)),
				func(ctx context.Context) ([]domain.Link, error) {
					return api.ListLinks(ctx, domain.StatusAll, "")
				},
				func(l domain.Link) bool { return l.ID == id })
			if err != nil {
				rejectLookup(d, w, r, ret, id, err)
				return
			}
			st.Keep(form.LinkValues(link))
		}
		msg, err := d.Submitter.Submit(r.Context(), st, func(ctx context.Context, st *form.State) (string, error) {
			return api.UpdateLink(ctx, id, st.LinkUpdate())
		})
		if err != nil {
			values := returnValues(ret)
			values.Set("dialog", string(domain.DialogEdit))
			values.Set("id", id)
			showLinks(d, w, r, values, st, http.StatusUnprocessableEntity)
			return
		}

		invalidate(d, r, listview.LinkUpdate)
		flash(d, r, session.FlashSuccess, msg, "saved")
		redirect(w, r, ret)
	}
}

func LinkDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ret := safeReturn(r.FormValue("return"), linksPath)

		msg, err := apiFor(d, r).DeleteLink(r.Context(), id)
		if err != nil {
			d.Logger.Warn("failed to delete link", logger.String("id", id), logger.Error(err))
			flashError(d, r, err)
			redirect(w, r, withDialog(ret, domain.DialogDelete, id))
			return
		}

		invalidate(d, r, listview.LinkDelete)
		flash(d, r, session.FlashSuccess, msg, "deleted")
		redirect(w, r, ret)
	}
}

var emailColumns = []listview.Column{
	{Key: "email", Label: "email"},
	{Key: "follow_up_sent", Label: "follow_up_sent"},
	{Key: "visited_at", Label: "visited_at"},
}

type linkDetailsView struct {
	Slug    string
	From    string
	To      string
	Details *domain.LinkDetails
	Emails  listview.Table[domain.Email]
	Stale   bool
}

// LinkDetails shows one link with the emails it captured in a date range.
func LinkDetails(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		rng := domain.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
		path := linksPath + "/" + url.PathEscape(slug)

		p := newPage(d, r, "redirectLinkDetails", "link_information", "links")
		api := apiFor(d, r)
		q := listview.NewQuery(domain.KindLink, "slug", slug, "from", rng.From, "to", rng.To)
		res, done := loadList(d, w, r, p, screenLoad{screen: "link_details", path: path, tagged: true}, q,
			func(ctx context.Context) (*domain.LinkDetails, error) {
				return api.LinkDetails(ctx, slug, rng)
			})
		if done {
			return
		}

		v := linkDetailsView{
			Slug:    slug,
			From:    rng.From,
			To:      rng.To,
			Details: res.Rows,
			Emails:  listview.Table[domain.Email]{Kind: domain.KindEmail, Columns: emailColumns},
			Stale:   res.Stale,
		}
		if res.Rows != nil {
			v.Emails.Rows = res.Rows.EmailList
		}
		p.Data = v
		render(d, w, r, http.StatusOK, "link_details", p)
	}
}

// LinkExportCSV streams the backend's CSV export straight to the browser.
// Exports bypass the list cache.
func LinkExportCSV(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		rng := domain.ParseDateRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))

		body, contentType, err := apiFor(d, r).ExportLinkCSV(r.Context(), slug, rng)
		if err != nil {
			d.Logger.Warn("csv export failed", logger.String("slug", slug), logger.Error(err))
			flash(d, r, session.FlashError, "", "err_export_failed")
			redirect(w, r, linksPath+"/"+url.PathEscape(slug))
			return
		}
		defer body.Close()

		if contentType == "" || strings.HasPrefix(contentType, "application/json") {
			contentType = "text/csv; charset=utf-8"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", export.Attachment(export.CSVFilename(slug)))
		w.Header().Set("Cache-Control", "no-store")
		if _, err := io.Copy(w, body); err != nil {
			d.Logger.Warn("csv export interrupted", logger.String("slug", slug), logger.Error(err))
		}
	}
}

// LinkQR renders the short URL of a link as a PNG download.
func LinkQR(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		png, err := export.QRCode(d.PublicLinkBase, slug, size)
		if err != nil {
			d.Logger.Error("failed to build qr code", logger.String("slug", slug), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", export.Attachment(export.QRFilename(slug)))
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		_, _ = w.Write(png)
	}
}

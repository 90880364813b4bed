package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
	"github.com/MrSnakeDoc/linkdash/internal/web"
)

const commonNS = "common"

// apiFor binds the shared client to the session of the request.
func apiFor(d deps.Deps, r *http.Request) *backend.API {
	if s := session.FromContext(r.Context()); s != nil {
		return d.Backend.For(s)
	}
	return d.Backend.For(nil)
}

// language picks the session preference, then the browser's, then the default.
func language(d deps.Deps, r *http.Request) string {
	if s := session.FromContext(r.Context()); s != nil {
		if l := s.Language(); l != "" && d.Catalog.Supported(l) {
			return l
		}
	}
	return d.Catalog.Match(r.Header.Get("Accept-Language"))
}

func tr(d deps.Deps, r *http.Request, key string, args ...any) string {
	return d.Catalog.T(language(d, r), commonNS, key, args...)
}

// newPage builds the layout data shared by every screen. Queued flashes are
// consumed here.
func newPage(d deps.Deps, r *http.Request, ns, title, nav string) *web.Page {
	p := &web.Page{
		Lang:      language(d, r),
		Languages: d.Catalog.Languages(),
		NS:        ns,
		Title:     title,
		Nav:       nav,
		Path:      r.URL.Path,
	}
	s := session.FromContext(r.Context())
	if s == nil {
		return p
	}
	p.Flashes = s.PopFlashes(r.Context())
	if s.Authenticated() {
		p.Admin = s.Admin()
		if p.Admin == nil {
			p.Admin = &domain.UserRef{}
		}
	}
	return p
}

// sessionTag scopes a load to the session of the request.
func sessionTag(r *http.Request) *listview.Tag {
	s := session.FromContext(r.Context())
	if s == nil {
		return nil
	}
	return &listview.Tag{Scope: s.ID()}
}

// pendingFollowUps feeds the navigation badge. It loads the unfiltered
// follow-up list, so a stale answer still counts when the refresh fails.
func pendingFollowUps(d deps.Deps, r *http.Request) int {
	api := apiFor(d, r)
	q := followUpQuery(domain.StatusAll, "")
	res := listview.Load(r.Context(), d.Lists, q, sessionTag(r), func(ctx context.Context) ([]domain.FollowUp, error) {
		return api.ListFollowUps(ctx, domain.StatusAll, "")
	})
	if res.Err != nil && !res.Stale {
		return 0
	}
	return domain.PendingApproval(res.Rows)
}

// showError adds a non-persisted error flash to the page being rendered.
func showError(p *web.Page, msg string) {
	p.Flashes = append(p.Flashes, session.Flash{Kind: session.FlashError, Message: msg})
}

func render(d deps.Deps, w http.ResponseWriter, r *http.Request, status int, name string, p *web.Page) {
	if p.Authenticated() && !p.PendingKnown {
		p.PendingFollowUps = pendingFollowUps(d, r)
	}
	if err := d.Renderer.Render(w, status, name, p); err != nil {
		d.Logger.Error("failed to render page",
			logger.String("page", name),
			logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// flash queues a translated message for the next page. A backend message
// takes precedence over the fallback key.
func flash(d deps.Deps, r *http.Request, kind, backendMsg, key string, args ...any) {
	s := session.FromContext(r.Context())
	if s == nil {
		return
	}
	msg := backendMsg
	if msg == "" {
		msg = tr(d, r, key, args...)
	}
	if err := s.AddFlash(r.Context(), kind, msg); err != nil {
		d.Logger.Warn("failed to store flash", logger.Error(err))
	}
}

func flashError(d deps.Deps, r *http.Request, err error) {
	flash(d, r, session.FlashError, backend.Message(err, ""), "err_request_failed")
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// safeReturn accepts only local paths so a posted return value can never
// send the browser to another site.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}

// returnValues are the filters of the screen a dialog was posted from.
func returnValues(ret string) url.Values {
	u, err := url.Parse(ret)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

// withDialog reopens a dialog on the screen at ret.
func withDialog(ret string, mode domain.DialogMode, id string) string {
	u, err := url.Parse(ret)
	if err != nil {
		return ret
	}
	q := u.Query()
	q.Set("dialog", string(mode))
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// selfURL is the screen path with its non-empty filters.
func selfURL(path string, q listview.Query) string {
	if enc := q.Values().Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

// invalidate runs before the redirect that re-fetches. A failure is logged:
// the mutation already happened and the TTL bounds the staleness.
func invalidate(d deps.Deps, r *http.Request, m listview.MutationKind) {
	if err := d.Lists.Invalidate(r.Context(), m); err != nil {
		d.Logger.Error("failed to invalidate lists",
			logger.String("mutation", string(m)),
			logger.Error(err))
	}
}

// screenLoad binds a list load to the session screen it renders.
type screenLoad struct {
	screen string // session query key slot
	path   string // screen URL, used to follow a newer query
	tagged bool   // only navigations record their query
}

// loadList runs a list load for a screen. It reports true when the response
// was already written, which happens when a newer query of the same session
// superseded this one. Errors become a flash on p; prior rows stay visible.
func loadList[T any](d deps.Deps, w http.ResponseWriter, r *http.Request, p *web.Page, sl screenLoad, q listview.Query, fetch func(context.Context) (T, error)) (listview.Result[T], bool) {
	ctx := r.Context()
	tag := sessionTag(r)
	if s := session.FromContext(ctx); s != nil && sl.tagged && s.ID() != "" {
		if err := s.SetQueryKey(ctx, sl.screen, q.Key()); err != nil {
			d.Logger.Warn("failed to record query key", logger.String("screen", sl.screen), logger.Error(err))
		}
		tag.Screen = sl.screen
		tag.Latest = func(ctx context.Context) (string, error) {
			return s.LatestQueryKey(ctx, sl.screen)
		}
	}

	res := listview.Load(ctx, d.Lists, q, tag, fetch)
	if errors.Is(res.Err, listview.ErrSuperseded) {
		latest, err := session.FromContext(ctx).LatestQueryKey(ctx, sl.screen)
		if err == nil {
			if lq, perr := listview.ParseKey(latest); perr == nil && lq.Kind == q.Kind {
				redirect(w, r, selfURL(sl.path, lq))
				return res, true
			}
		}
		// nothing better to show, render what was asked for
		res.Err = nil
		res.Status = listview.StatusReady
	}

	if res.Err != nil {
		d.Logger.Warn("list load failed",
			logger.String("kind", string(q.Kind)),
			logger.String("key", q.Key()),
			logger.Bool("stale", res.Stale),
			logger.Error(res.Err))
		showError(p, d.Catalog.T(p.Lang, commonNS, backend.Message(res.Err, "err_request_failed")))
	}
	return res, false
}

var errRecordGone = errors.New("record no longer listed")

// storedRecord finds a record in its unfiltered list so file fields are
// replaced against what the backend holds. Stale rows are refused.
func storedRecord[T any](d deps.Deps, r *http.Request, q listview.Query, fetch func(context.Context) ([]T, error), match func(T) bool) (T, error) {
	var zero T
	res := listview.Load(r.Context(), d.Lists, q, sessionTag(r), fetch)
	if res.Err != nil {
		return zero, res.Err
	}
	for _, row := range res.Rows {
		if match(row) {
			return row, nil
		}
	}
	return zero, errRecordGone
}

// rejectLookup sends a dialog whose record could not be resolved back to it.
func rejectLookup(d deps.Deps, w http.ResponseWriter, r *http.Request, ret string, id string, err error) {
	if errors.Is(err, errRecordGone) {
		flash(d, r, session.FlashError, "", "err_record_gone")
		redirect(w, r, ret)
		return
	}
	flashError(d, r, err)
	redirect(w, r, withDialog(ret, domain.DialogEdit, id))
}

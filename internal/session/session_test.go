package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/index"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

func newManager(t *testing.T) (*Manager, *index.MemoryIndex) {
	t.Helper()
	store := index.NewMemoryIndex()
	return NewManager(store, Options{CookieName: "sid", TTL: time.Hour}, logger.Nop()), store
}

// load simulates a request carrying the cookies of a previous response.
func load(t *testing.T, m *Manager, prev *httptest.ResponseRecorder) (*Session, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if prev != nil {
		for _, c := range prev.Result().Cookies() {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	s, err := m.Load(rec, req)
	require.NoError(t, err)
	return s, rec
}

func TestAnonymousSessionIsNotPersisted(t *testing.T) {
	m, store := newManager(t)

	s, rec := load(t, m, nil)

	assert.False(t, s.Authenticated())
	assert.Empty(t, s.ID())
	assert.Empty(t, rec.Result().Cookies())
	assert.Zero(t, store.SessionCount())
}

func TestSetTokenPersistsAcrossRequests(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, rec := load(t, m, nil)
	require.NoError(t, s.SetToken(ctx, "jwt-1", domain.UserRef{ID: "u1", Role: domain.RoleAdmin}))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "sid", cookies[0].Name)

	again, _ := load(t, m, rec)
	tok, ok := again.GetToken()
	assert.True(t, ok)
	assert.Equal(t, "jwt-1", tok)
	assert.Equal(t, "u1", again.Admin().ID)
}

func TestSetTokenRotatesID(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	s, _ := load(t, m, nil)
	require.NoError(t, s.SetLanguage(ctx, "es"))
	before := s.ID()

	require.NoError(t, s.SetToken(ctx, "jwt", domain.UserRef{Role: domain.RoleAdmin}))

	assert.NotEqual(t, before, s.ID())
	assert.Equal(t, "es", s.Language())
	assert.Equal(t, 1, store.SessionCount())
}

func TestClearKeepsLanguage(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, rec := load(t, m, nil)
	require.NoError(t, s.SetToken(ctx, "jwt", domain.UserRef{Role: domain.RoleAdmin}))
	require.NoError(t, s.SetLanguage(ctx, "es"))
	require.NoError(t, s.Clear(ctx))

	again, _ := load(t, m, rec)
	assert.False(t, again.Authenticated())
	assert.Nil(t, again.Admin())
	assert.Equal(t, "es", again.Language())
}

func TestSubscribersSeePersistedChanges(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	var events []Event
	unsubscribe := m.Subscribe(func(c Change) { events = append(events, c.Event) })

	s, _ := load(t, m, nil)
	require.NoError(t, s.SetToken(ctx, "jwt", domain.UserRef{Role: domain.RoleAdmin}))
	require.NoError(t, s.SetLanguage(ctx, "es"))
	require.NoError(t, s.SetLanguage(ctx, "es"))
	require.NoError(t, s.Clear(ctx))

	unsubscribe()
	require.NoError(t, s.SetToken(ctx, "jwt2", domain.UserRef{Role: domain.RoleAdmin}))

	assert.Equal(t, []Event{EventLogin, EventLanguage, EventLogout}, events)
}

func TestFlashesAreOneShot(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, rec := load(t, m, nil)
	require.NoError(t, s.AddFlash(ctx, FlashSuccess, "Link deleted"))
	require.NoError(t, s.AddFlash(ctx, FlashError, ""))

	next, _ := load(t, m, rec)
	assert.Equal(t, []Flash{{Kind: FlashSuccess, Message: "Link deleted"}}, next.PopFlashes(ctx))

	last, _ := load(t, m, rec)
	assert.Empty(t, last.PopFlashes(ctx))
}

func TestLatestQueryKeySeesNewerRequest(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	first, rec := load(t, m, nil)
	require.NoError(t, first.SetQueryKey(ctx, "links", "link?search=a"))

	second, _ := load(t, m, rec)
	require.NoError(t, second.SetQueryKey(ctx, "links", "link?search=ab"))

	latest, err := first.LatestQueryKey(ctx, "links")
	require.NoError(t, err)
	assert.Equal(t, "link?search=ab", latest)
}

func TestTwoTabsKeepEachOthersWrites(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, rec := load(t, m, nil)
	require.NoError(t, s.SetToken(ctx, "jwt", domain.UserRef{Role: domain.RoleAdmin}))

	// both tabs load the same record before either writes
	tabA, _ := load(t, m, rec)
	tabB, _ := load(t, m, rec)

	require.NoError(t, tabA.SetQueryKey(ctx, "links", "link?search=a"))
	require.NoError(t, tabB.SetQueryKey(ctx, "users", "user?search=b"))
	require.NoError(t, tabA.AddFlash(ctx, FlashSuccess, "Link deleted"))
	require.NoError(t, tabB.AddFlash(ctx, FlashSuccess, "User saved"))

	next, _ := load(t, m, rec)
	assert.Equal(t, []Flash{
		{Kind: FlashSuccess, Message: "Link deleted"},
		{Kind: FlashSuccess, Message: "User saved"},
	}, next.PopFlashes(ctx))

	links, err := next.LatestQueryKey(ctx, "links")
	require.NoError(t, err)
	assert.Equal(t, "link?search=a", links)
	users, err := next.LatestQueryKey(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, "user?search=b", users)
	assert.True(t, next.Authenticated())
}

func TestSetQueryKeyWritesEvenWhenSnapshotMatches(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	s, rec := load(t, m, nil)
	require.NoError(t, s.SetQueryKey(ctx, "links", "link?search=a"))

	tabA, _ := load(t, m, rec)
	tabB, _ := load(t, m, rec)
	require.NoError(t, tabB.SetQueryKey(ctx, "links", "link?search=b"))
	require.NoError(t, tabA.SetQueryKey(ctx, "links", "link?search=a"))

	latest, err := tabB.LatestQueryKey(ctx, "links")
	require.NoError(t, err)
	assert.Equal(t, "link?search=a", latest)
}

func TestUnknownCookieFallsBackToAnonymous(t *testing.T) {
	m, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "not-a-uuid"})
	s, err := m.Load(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "7d3f4c52-1b1e-4a59-9c4d-0c6f2f6b9a10"})
	s, err = m.Load(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.Empty(t, s.ID())
}

func TestMiddlewarePutsSessionInContext(t *testing.T) {
	m, _ := newManager(t)

	var got *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Nil(t, FromContext(context.Background()))
}

package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/config"
	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver"
	"github.com/MrSnakeDoc/linkdash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdash/internal/i18n"
	"github.com/MrSnakeDoc/linkdash/internal/index"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/session"
	"github.com/MrSnakeDoc/linkdash/internal/storage"
	"github.com/MrSnakeDoc/linkdash/internal/web"
)

const adminToken = "tok-admin"

// fakeAPI is an in-memory stand-in for the platform REST API.
type fakeAPI struct {
	uploadDir string

	mu             sync.Mutex
	role           string
	links          []domain.Link
	users          []domain.User
	followUps      []domain.FollowUp
	visits         []domain.Visit
	hits           map[string]int
	auth           []string
	fail           map[string]int
	gate           func(*http.Request)
	userUpdate     *domain.UserUpdate
	uploadFound    bool
	userCreate     *domain.UserCreate
	usersStatus    *domain.UsersStatus
	followUpUpdate *domain.FollowUpUpdate
	deletedVisits  []string
	resetToken     string
}

func newFakeAPI() *fakeAPI {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	summer := &domain.LinkRef{ID: "L1", Slug: "summer-sale"}
	return &fakeAPI{
		role: domain.RoleAdmin,
		hits: map[string]int{},
		fail: map[string]int{},
		links: []domain.Link{
			{ID: "L1", Slug: "summer-sale", DestinationURL: "https://shop.example.com/summer", IsActive: true, Visits: 12},
			{ID: "L2", Slug: "winter-promo", DestinationURL: "https://shop.example.com/winter", IsActive: true, Visits: 3},
		},
		users: []domain.User{
			{ID: "U1", Username: "ada", Name: "Ada Lovelace", Email: "ada@example.com"},
		},
		followUps: []domain.FollowUp{
			{ID: "F1", Subject: "Welcome series", Img: storage.LocalPrefix + "fu-old.png", Enabled: true, Link: summer, CreatedAt: created},
			{ID: "F2", Subject: "Cart reminder", Enabled: true, Link: summer, CreatedAt: created},
			{ID: "F3", Subject: "Thank you note", Enabled: true, Approved: true, Link: summer, CreatedAt: created},
		},
		visits: []domain.Visit{
			{ID: "V1", VisitorID: "visitor-one", VisitIP: "10.0.0.1", VisitedAt: created, Link: summer},
			{ID: "V2", VisitorID: "visitor-two", VisitIP: "10.0.0.2", VisitedAt: created, Link: summer},
			{ID: "V3", VisitorID: "visitor-three", VisitIP: "10.0.0.3", VisitedAt: created, Link: summer},
		},
	}
}

// failWith makes every call to the endpoint answer status until cleared
// with a zero status.
func (f *fakeAPI) failWith(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, endpoint)
		return
	}
	f.fail[endpoint] = status
}

func (f *fakeAPI) setGate(gate func(*http.Request)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeAPI) lastAuth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.auth) == 0 {
		return ""
	}
	return f.auth[len(f.auth)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(msg string, data any) map[string]any {
	return map[string]any{"message": msg, "data": data}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := r.Method + " " + r.URL.Path
	f.mu.Lock()
	f.hits[endpoint]++
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	status := f.fail[endpoint]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		gate(r)
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "database down"})
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/user/login", f.login)
	mux.HandleFunc("POST /api/user/forgot-password", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope("", nil))
	})
	mux.HandleFunc("POST /api/user/reset-password/{token}", f.resetPassword)
	mux.HandleFunc("PUT /api/user/update-password", f.updatePassword)
	mux.HandleFunc("GET /api/dashboard/admin", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope("", domain.DashboardSummary{
			TotalUsers: 417, TotalLinks: 2, TotalVisits: 915, TotalEmails: 28,
			TopLinks: f.snapshotLinks(),
		}))
	})
	mux.HandleFunc("GET /api/follow-up/all", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		items := append([]domain.FollowUp{}, f.followUps...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, envelope("", items))
	})
	mux.HandleFunc("PUT /api/follow-up/update/{id}", f.updateFollowUp)
	mux.HandleFunc("DELETE /api/follow-up/delete/{id}", f.deleteFollowUp)
	mux.HandleFunc("GET /api/link/all", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope("", f.snapshotLinks()))
	})
	mux.HandleFunc("DELETE /api/link/delete/{id}", f.deleteLink)
	mux.HandleFunc("PUT /api/link/update/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, envelope("Link updated", nil))
	})
	mux.HandleFunc("GET /api/link/details/{slug}", f.linkDetails)
	mux.HandleFunc("GET /api/visit/get/{id}", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		visits := append([]domain.Visit{}, f.visits...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, envelope("", visits))
	})
	mux.HandleFunc("POST /api/visit/delete", f.deleteVisits)
	mux.HandleFunc("GET /api/user/all-users", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		users := append([]domain.User(nil), f.users...)
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, envelope("", users))
	})
	mux.HandleFunc("GET /api/user/details/{username}", f.userDetails)
	mux.HandleFunc("POST /api/user/admin/create-user", f.createUser)
	mux.HandleFunc("PUT /api/user/admin/update/{id}", f.updateUser)
	mux.HandleFunc("DELETE /api/user/admin/remove/{id}", f.removeUser)
	mux.HandleFunc("PUT /api/user/admin/status", f.setUsersStatus)
	mux.ServeHTTP(w, r)
}

func (f *fakeAPI) snapshotLinks() []domain.Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Link(nil), f.links...)
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	f.mu.Lock()
	role := f.role
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"jwt":     adminToken,
		"message": "Welcome back",
		"user":    domain.UserRef{ID: "A1", Name: "Root", Username: "root", Email: in.Email, Role: role},
	})
}

func (f *fakeAPI) deleteLink(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	kept := f.links[:0]
	for _, l := range f.links {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	f.links = kept
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("Link removed", nil))
}

func (f *fakeAPI) linkDetails(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("exportAs") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, "email,visitedAt\nbob@example.com,2026-01-02\n")
		return
	}
	slug := r.PathValue("slug")
	for _, l := range f.snapshotLinks() {
		if l.Slug == slug {
			writeJSON(w, http.StatusOK, envelope("", domain.LinkDetails{Link: l}))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Link not found"})
}

func (f *fakeAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	_, statErr := os.Stat(filepath.Join(f.uploadDir, strings.TrimPrefix(in.Img, storage.LocalPrefix)))

	f.mu.Lock()
	f.userUpdate = &in
	f.uploadFound = in.Img != "" && statErr == nil
	for i := range f.users {
		if f.users[i].ID == r.PathValue("id") {
			f.users[i].Name = in.Name
			f.users[i].Img = in.Img
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("User updated", nil))
}

func (f *fakeAPI) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "expired" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Reset link expired"})
		return
	}
	f.mu.Lock()
	f.resetToken = token
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) updatePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OldPassword string `json:"oldPassword"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.OldPassword != "secret" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Old password is incorrect"})
		return
	}
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) updateFollowUp(w http.ResponseWriter, r *http.Request) {
	var in domain.FollowUpUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	f.mu.Lock()
	f.followUpUpdate = &in
	for i := range f.followUps {
		if f.followUps[i].ID == r.PathValue("id") {
			f.followUps[i].Subject = in.Subject
			f.followUps[i].Img = in.Img
			f.followUps[i].Enabled = in.Enabled
			f.followUps[i].Approved = in.Approved
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) deleteFollowUp(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	kept := f.followUps[:0]
	for _, fu := range f.followUps {
		if fu.ID != id {
			kept = append(kept, fu)
		}
	}
	f.followUps = kept
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) deleteVisits(w http.ResponseWriter, r *http.Request) {
	var in struct {
		VisitIDs []string `json:"visitIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	gone := map[string]bool{}
	for _, id := range in.VisitIDs {
		gone[id] = true
	}
	f.mu.Lock()
	f.deletedVisits = append(f.deletedVisits, in.VisitIDs...)
	kept := f.visits[:0]
	for _, v := range f.visits {
		if !gone[v.ID] {
			kept = append(kept, v)
		}
	}
	f.visits = kept
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) userDetails(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == r.PathValue("username") {
			u.Links = append([]domain.Link(nil), f.links...)
			writeJSON(w, http.StatusOK, envelope("", u))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
}

func (f *fakeAPI) createUser(w http.ResponseWriter, r *http.Request) {
	var in domain.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == in.Username {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "Validation failed", "username": "Username taken"})
			return
		}
	}
	f.userCreate = &in
	f.users = append(f.users, domain.User{ID: "U" + strconv.Itoa(len(f.users)+1), Username: in.Username, Name: in.Name, Email: in.Email})
	writeJSON(w, http.StatusCreated, envelope("", nil))
}

func (f *fakeAPI) removeUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	kept := f.users[:0]
	for _, u := range f.users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	f.users = kept
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

func (f *fakeAPI) setUsersStatus(w http.ResponseWriter, r *http.Request) {
	var in domain.UsersStatus
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad body"})
		return
	}
	f.mu.Lock()
	f.usersStatus = &in
	for i := range f.users {
		for _, id := range in.UserIDs {
			if f.users[i].ID == id {
				f.users[i].IsBlocked = in.Status == string(domain.UserBlocked)
			}
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, envelope("", nil))
}

type harness struct {
	api    *fakeAPI
	srv    *httptest.Server
	store  *index.MemoryIndex
	reload chan struct{}
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := newFakeAPI()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	log := logger.Nop()
	client, err := backend.New(backend.Options{BaseURL: apiSrv.URL, Timeout: 2 * time.Second, AuthScheme: "Bearer"}, log)
	require.NoError(t, err)

	catalog := i18n.NewCatalog("en", "", log)
	require.NoError(t, catalog.Reload())
	renderer, err := web.New(catalog, "https://sho.rt")
	require.NoError(t, err)

	uploadDir := t.TempDir()
	api.uploadDir = uploadDir
	files, err := storage.NewLocal(uploadDir)
	require.NoError(t, err)

	store := index.NewMemoryIndex()
	reload := make(chan struct{}, 1)
	d := deps.Deps{
		Logger:         log,
		StartTime:      time.Now(),
		Version:        "test",
		Backend:        client,
		Sessions:       session.NewManager(store, session.Options{TTL: time.Hour}, log),
		Lists:          listview.NewRegistry(store, listview.Options{TTL: time.Minute}, log),
		Submitter:      form.NewSubmitter(files, log),
		Catalog:        catalog,
		Renderer:       renderer,
		Store:          store,
		Files:          files,
		UploadDir:      uploadDir,
		PublicLinkBase: "https://sho.rt",
		ReloadTrigger:  reload,
		LoginBurst:     100,
		LoginRefill:    100,
	}
	cfg := &config.Config{APITimeout: 5 * time.Second}
	srv := httptest.NewServer(httpserver.NewRouter(cfg, log, d))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		api:    api,
		srv:    srv,
		store:  store,
		reload: reload,
		client: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	header   http.Header
	body     string
}

func (h *harness) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		header:   resp.Header,
		body:     string(body),
	}
}

func (h *harness) get(t *testing.T, path string) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(t, err)
	return h.do(t, req)
}

func (h *harness) post(t *testing.T, path string, values url.Values) response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(t, req)
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	res := h.post(t, "/login", url.Values{"email": {"root@example.com"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, "/dashboard", res.location)
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/", "/dashboard", "/dashboard/users", "/dashboard/redirect-links?status=active"} {
		res := h.get(t, path)
		assert.Equal(t, http.StatusSeeOther, res.status, path)
		assert.Equal(t, "/login", res.location, path)
	}
	assert.Zero(t, h.api.count("GET /api/dashboard/admin"))
}

func TestGuardSendsAdminAwayFromLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.get(t, "/login")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/dashboard", res.location)

	res = h.get(t, "/")
	assert.Equal(t, "/dashboard", res.location)
}

func TestLoginThenDashboardUsesToken(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "Bearer "+adminToken, h.api.lastAuth())
	assert.Contains(t, res.body, "<strong>417</strong>")
	assert.Contains(t, res.body, "<strong>915</strong>")
	assert.Contains(t, res.body, "Welcome back")
	assert.Equal(t, 1, h.api.count("GET /api/dashboard/admin"))

	// every visit asks the backend again
	res = h.get(t, "/dashboard")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 2, h.api.count("GET /api/dashboard/admin"))
	assert.NotContains(t, res.body, "Welcome back")
}

func TestLoginRejectsNonAdmin(t *testing.T) {
	h := newHarness(t)
	h.api.role = "user"

	res := h.post(t, "/login", url.Values{"email": {"joe@example.com"}, "password": {"secret"}})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Contains(t, res.body, "Only administrators can sign in here.")
	assert.NotContains(t, res.body, `value="secret"`)

	res = h.get(t, "/dashboard")
	assert.Equal(t, "/login", res.location)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)

	res := h.post(t, "/login", url.Values{"email": {"root@example.com"}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Invalid credentials")
	assert.Contains(t, res.body, "root@example.com")
}

func TestLoginValidationBlocksBackendCall(t *testing.T) {
	h := newHarness(t)

	res := h.post(t, "/login", url.Values{"email": {"not-an-email"}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Zero(t, h.api.count("POST /api/user/login"))
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.post(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)

	res = h.get(t, "/dashboard")
	assert.Equal(t, "/login", res.location)
}

func TestDeleteLinkInvalidatesList(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.get(t, "/dashboard/redirect-links")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "summer-sale")
	assert.Contains(t, res.body, "winter-promo")

	h.get(t, "/dashboard/redirect-links")
	assert.Equal(t, 2, h.api.count("GET /api/link/all"))

	res = h.post(t, "/dashboard/redirect-links/delete/L1", url.Values{"return": {"/dashboard/redirect-links"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/dashboard/redirect-links", res.location)
	assert.Equal(t, 1, h.api.count("DELETE /api/link/delete/L1"))

	res = h.get(t, res.location)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 3, h.api.count("GET /api/link/all"))
	assert.NotContains(t, res.body, "summer-sale")
	assert.Contains(t, res.body, "winter-promo")
	assert.Contains(t, res.body, "Link removed")
}

func TestLinkEditValidationBlocksBackendCall(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.post(t, "/dashboard/redirect-links/edit/L1", url.Values{
		"destinationUrl": {""},
		"return":         {"/dashboard/redirect-links"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, res.status)
	assert.Zero(t, h.api.count("PUT /api/link/update/L1"))
	// the dialog is reopened on the offending row
	assert.Contains(t, res.body, `action="/dashboard/redirect-links/edit/L1"`)
}

func TestEmptyLinksList(t *testing.T) {
	h := newHarness(t)
	h.api.links = nil
	h.login(t)

	res := h.get(t, "/dashboard/redirect-links")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No links match the current filters.")
}

func TestUserEditUploadsImageBeforeUpdate(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.get(t, "/dashboard/users")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 1, h.api.count("GET /api/user/all-users"))

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	require.NoError(t, mp.WriteField("username", "ada"))
	require.NoError(t, mp.WriteField("name", "Ada King"))
	require.NoError(t, mp.WriteField("email", "ada@example.com"))
	require.NoError(t, mp.WriteField("return", "/dashboard/users"))
	fw, err := mp.CreateFormFile("img", "avatar.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("\x89PNG fake image"))
	require.NoError(t, err)
	require.NoError(t, mp.Close())

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/dashboard/users/edit/U1", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	res = h.do(t, req)
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/dashboard/users", res.location)

	h.api.mu.Lock()
	update := h.api.userUpdate
	found := h.api.uploadFound
	h.api.mu.Unlock()
	require.NotNil(t, update)
	assert.True(t, strings.HasPrefix(update.Img, storage.LocalPrefix))
	assert.True(t, strings.HasSuffix(update.Img, ".png"))
	assert.True(t, found, "image stored before the update was sent")
	assert.Equal(t, "Ada King", update.Name)

	// one lookup of the stored record before the update
	assert.Equal(t, 2, h.api.count("GET /api/user/all-users"))

	res = h.get(t, res.location)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 3, h.api.count("GET /api/user/all-users"))
	assert.Contains(t, res.body, "Ada King")
}

func TestExportCSVLeavesCacheAlone(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.get(t, "/dashboard/redirect-links")
	before := h.store.ListCount()

	res := h.get(t, "/dashboard/redirect-links/summer-sale/export.csv?from=2026-01-01&to=2026-01-31")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "email,visitedAt\nbob@example.com,2026-01-02\n", res.body)
	assert.Contains(t, res.header.Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename=summer-sale_visits.csv`, res.header.Get("Content-Disposition"))
	assert.Equal(t, 1, h.api.count("GET /api/link/details/summer-sale"))
	assert.Equal(t, before, h.store.ListCount())
}

func TestLinkQRIsPNG(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	res := h.get(t, "/dashboard/redirect-links/summer-sale/qr.png")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "image/png", res.header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(res.body, "\x89PNG"))
}

func TestNotFoundPage(t *testing.T) {
	h := newHarness(t)

	res := h.get(t, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Contains(t, res.body, "This page does not exist.")
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	res := h.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `"store":"memory"`)
	assert.Contains(t, res.body, `"uploads":"local"`)
}

func TestReadyzWithLoadedCatalog(t *testing.T) {
	h := newHarness(t)

	res := h.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `"ready":true`)
}

func TestReloadPurgesListsAndTriggersOnce(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.get(t, "/dashboard/redirect-links")
	require.Positive(t, h.store.ListCount())

	res := h.post(t, "/reload", nil)
	assert.Equal(t, http.StatusAccepted, res.status)
	assert.Zero(t, h.store.ListCount())
	assert.Len(t, h.reload, 1)

	// the pending trigger has not been consumed yet
	res = h.post(t, "/reload", nil)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
}

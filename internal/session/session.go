// Package session keeps the admin's backend token server-side.
//
// Manager is the only owner of session lifecycle: it loads a Session from the
// request cookie, persists every change through a Store and notifies
// subscribers. Handlers receive the Session explicitly (from the request
// context) and hand it to the API client as its TokenSource.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkdash/internal/domain"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
)

// ErrNotFound is returned when a session ID has no record.
var ErrNotFound = errors.New("session not found")

// Store persists encoded session records. A miss is (nil, nil).
// UpdateSession applies fn to the stored record atomically; fn gets nil on a
// miss.
type Store interface {
	SaveSession(ctx context.Context, id string, data []byte, ttl time.Duration) error
	GetSession(ctx context.Context, id string) ([]byte, error)
	UpdateSession(ctx context.Context, id string, ttl time.Duration, fn func([]byte) ([]byte, error)) error
	DeleteSession(ctx context.Context, id string) error
}

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-shot notification shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is what changed on a session.
type Event string

const (
	EventLogin    Event = "login"
	EventLogout   Event = "logout"
	EventLanguage Event = "language"
)

// Change is delivered to subscribers after it has been persisted.
type Change struct {
	SessionID string
	Event     Event
	Admin     *domain.UserRef
}

type record struct {
	Token     string            `json:"token,omitempty"`
	Language  string            `json:"language,omitempty"`
	Admin     *domain.UserRef   `json:"admin,omitempty"`
	Flashes   []Flash           `json:"flashes,omitempty"`
	QueryKeys map[string]string `json:"queryKeys,omitempty"`
	Touched   time.Time         `json:"touched"`
}

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type Manager struct {
	store  Store
	opts   Options
	logger logger.Logger
	now    func() time.Time
	newID  func() string

	mu        sync.RWMutex
	listeners map[int]func(Change)
	nextID    int
}

func NewManager(store Store, opts Options, log logger.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "linkdash_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	return &Manager{
		store:     store,
		opts:      opts,
		logger:    log,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		listeners: make(map[int]func(Change)),
	}
}

// Subscribe registers fn for every persisted change. The returned func removes it.
func (m *Manager) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *Manager) notify(c Change) {
	m.mu.RLock()
	fns := make([]func(Change), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Load reads the session named by the request cookie. A missing or unknown
// cookie yields a fresh anonymous session that is only persisted once
// something is written to it.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	s := &Session{m: m, w: w, rec: record{}}

	c, err := r.Cookie(m.opts.CookieName)
	if err != nil || c.Value == "" {
		return s, nil
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return s, nil
	}

	rec, err := m.read(r.Context(), c.Value)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return s, err
	}

	s.id = c.Value
	s.rec = *rec

	// Sliding expiry without a write on every request.
	if m.now().Sub(rec.Touched) > m.opts.TTL/4 {
		if err := m.update(r.Context(), s, func(*record) {}); err != nil {
			m.logger.Warn("failed to refresh session", logger.Error(err))
		}
	}
	return s, nil
}

func (m *Manager) read(ctx context.Context, id string) (*record, error) {
	data, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if data == nil {
		return nil, ErrNotFound
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	if s.id == "" {
		s.id = m.newID()
		s.setCookie()
	}
	s.rec.Touched = m.now()

	data, err := json.Marshal(s.rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.store.SaveSession(ctx, s.id, data, m.opts.TTL); err != nil {
		return err
	}
	return nil
}

// update applies mutate to the stored record rather than to the request's
// snapshot, so two requests of one session only ever touch their own fields.
// The merged record becomes the new snapshot. mutate may run more than once.
func (m *Manager) update(ctx context.Context, s *Session, mutate func(*record)) error {
	if s.id == "" {
		mutate(&s.rec)
		return m.save(ctx, s)
	}

	var merged record
	err := m.store.UpdateSession(ctx, s.id, m.opts.TTL, func(cur []byte) ([]byte, error) {
		rec := s.rec.clone()
		if cur != nil {
			rec = record{}
			if err := json.Unmarshal(cur, &rec); err != nil {
				return nil, fmt.Errorf("failed to decode session: %w", err)
			}
		}
		mutate(&rec)
		rec.Touched = m.now()
		merged = rec
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	s.rec = merged
	return nil
}

func (r record) clone() record {
	out := r
	out.Flashes = append([]Flash(nil), r.Flashes...)
	if r.QueryKeys != nil {
		out.QueryKeys = make(map[string]string, len(r.QueryKeys))
		for k, v := range r.QueryKeys {
			out.QueryKeys[k] = v
		}
	}
	return out
}

// LatestQueryKey re-reads the stored query key of a screen, bypassing the
// request's snapshot, so that a newer request of the same session is seen.
func (m *Manager) LatestQueryKey(ctx context.Context, sessionID, screen string) (string, error) {
	if sessionID == "" {
		return "", nil
	}
	rec, err := m.read(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.QueryKeys[screen], nil
}

// Session is the per-request view of one admin session.
type Session struct {
	m   *Manager
	w   http.ResponseWriter
	id  string
	rec record
}

func (s *Session) setCookie() {
	if s.w == nil {
		return
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.m.opts.CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(s.m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Session) ID() string { return s.id }

// Token satisfies backend.TokenSource.
func (s *Session) Token() string { return s.rec.Token }

// GetToken returns the token and whether one is present.
func (s *Session) GetToken() (string, bool) {
	return s.rec.Token, s.rec.Token != ""
}

func (s *Session) Authenticated() bool { return s.rec.Token != "" }

// Admin is the signed-in admin snapshot, nil when anonymous.
func (s *Session) Admin() *domain.UserRef { return s.rec.Admin }

// SetToken stores the token of a successful login. The session ID is
// rotated so an ID issued before authentication never carries a token.
func (s *Session) SetToken(ctx context.Context, token string, admin domain.UserRef) error {
	if token == "" {
		return errors.New("empty token")
	}
	if s.id != "" {
		if err := s.m.store.DeleteSession(ctx, s.id); err != nil {
			s.m.logger.Warn("failed to drop pre-login session", logger.Error(err))
		}
		s.id = ""
	}

	s.rec.Token = token
	s.rec.Admin = &admin
	s.rec.QueryKeys = nil
	if err := s.m.save(ctx, s); err != nil {
		return err
	}
	s.m.notify(Change{SessionID: s.id, Event: EventLogin, Admin: s.rec.Admin})
	return nil
}

// Clear drops the token. The language preference survives a logout.
func (s *Session) Clear(ctx context.Context) error {
	admin := s.rec.Admin
	if s.id == "" {
		s.rec.Token, s.rec.Admin, s.rec.QueryKeys = "", nil, nil
		return nil
	}
	err := s.m.update(ctx, s, func(rec *record) {
		rec.Token = ""
		rec.Admin = nil
		rec.QueryKeys = nil
	})
	if err != nil {
		return err
	}
	s.m.notify(Change{SessionID: s.id, Event: EventLogout, Admin: admin})
	return nil
}

func (s *Session) Language() string { return s.rec.Language }

func (s *Session) SetLanguage(ctx context.Context, lang string) error {
	if lang == s.rec.Language {
		return nil
	}
	if err := s.m.update(ctx, s, func(rec *record) { rec.Language = lang }); err != nil {
		return err
	}
	s.m.notify(Change{SessionID: s.id, Event: EventLanguage, Admin: s.rec.Admin})
	return nil
}

// AddFlash queues a notification for the next rendered page.
func (s *Session) AddFlash(ctx context.Context, kind, message string) error {
	if message == "" {
		return nil
	}
	return s.m.update(ctx, s, func(rec *record) {
		rec.Flashes = append(rec.Flashes, Flash{Kind: kind, Message: message})
	})
}

// PopFlashes returns and forgets the queued notifications, including any a
// concurrent request of the session queued since this one loaded.
func (s *Session) PopFlashes(ctx context.Context) []Flash {
	if len(s.rec.Flashes) == 0 {
		return nil
	}
	snapshot := s.rec.Flashes
	var out []Flash
	err := s.m.update(ctx, s, func(rec *record) {
		out = rec.Flashes
		rec.Flashes = nil
	})
	if err != nil {
		s.m.logger.Warn("failed to persist popped flashes", logger.Error(err))
		s.rec.Flashes = nil
		return snapshot
	}
	return out
}

// SetQueryKey records the query a screen was last asked for. It always
// writes: another request may have recorded a different key since this one
// loaded.
func (s *Session) SetQueryKey(ctx context.Context, screen, key string) error {
	return s.m.update(ctx, s, func(rec *record) {
		if rec.QueryKeys == nil {
			rec.QueryKeys = make(map[string]string)
		}
		rec.QueryKeys[screen] = key
	})
}

// LatestQueryKey reports the most recent query key stored for screen by any
// request of this session.
func (s *Session) LatestQueryKey(ctx context.Context, screen string) (string, error) {
	return s.m.LatestQueryKey(ctx, s.id, screen)
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session of the request, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Middleware loads the session of every request into its context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(w, r)
		if err != nil {
			m.logger.Error("session load failed, continuing anonymous", logger.Error(err))
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

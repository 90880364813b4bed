package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveBackend(t *testing.T) {
	m := New()

	m.ObserveBackend("GET", "link.all", "ok", 20*time.Millisecond)
	m.ObserveBackend("GET", "link.all", "ok", 30*time.Millisecond)
	m.ObserveBackend("DELETE", "link.delete", "validation", time.Millisecond)

	out := scrape(t, m)
	assert.Contains(t, out, `linkdash_backend_requests_total{endpoint="link.all",method="GET",outcome="ok"} 2`)
	assert.Contains(t, out, `linkdash_backend_requests_total{endpoint="link.delete",method="DELETE",outcome="validation"} 1`)
	assert.Contains(t, out, `linkdash_backend_request_duration_seconds_count{endpoint="link.all"} 2`)
}

func TestObserveHTTPDefaultsRoute(t *testing.T) {
	m := New()
	m.ObserveHTTP("", 404)

	assert.Contains(t, scrape(t, m), `linkdash_http_requests_total{route="unmatched",status="404"} 1`)
}

func TestHandlerExposesOwnRegistry(t *testing.T) {
	m := New()
	m.ObserveCache("link", "fetched")
	m.SetActiveSessions(3)

	out := scrape(t, m)
	assert.Contains(t, out, `linkdash_list_cache_total{kind="link",result="fetched"} 1`)
	assert.Contains(t, out, "linkdash_sessions_active 3")
	assert.NotContains(t, out, "go_goroutines")
}

func TestObserveSession(t *testing.T) {
	m := New()
	m.ObserveSession("login")
	m.ObserveSession("login")
	m.ObserveSession("logout")

	out := scrape(t, m)
	assert.Contains(t, out, `linkdash_session_events_total{event="login"} 2`)
	assert.Contains(t, out, `linkdash_session_events_total{event="logout"} 1`)
}

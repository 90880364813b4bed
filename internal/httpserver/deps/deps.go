package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkdash/internal/backend"
	"github.com/MrSnakeDoc/linkdash/internal/form"
	"github.com/MrSnakeDoc/linkdash/internal/i18n"
	"github.com/MrSnakeDoc/linkdash/internal/listview"
	"github.com/MrSnakeDoc/linkdash/internal/logger"
	"github.com/MrSnakeDoc/linkdash/internal/metrics"
	"github.com/MrSnakeDoc/linkdash/internal/session"
	"github.com/MrSnakeDoc/linkdash/internal/web"
)

// Pinger is anything /infra reports on.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time   // for testing, defaults to time.Now
	AllowedHosts   []string           // Host headers allowed to access the server
	AllowedCIDRS   []string           // IPs allowed to access the ops endpoints
	TrustProxy     bool               // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Backend        *backend.Client    // shared API client, bound per request to the session token
	Sessions       *session.Manager   // session lifecycle
	Lists          *listview.Registry // list cache + invalidation
	Submitter      *form.Submitter    // dialog submit flow
	Catalog        *i18n.Catalog      // translations
	Renderer       *web.Renderer      // html templates
	Metrics        *metrics.Metrics   // prometheus collectors
	Store          Pinger             // session/cache store (redis or memory)
	Files          Pinger             // upload storage (local or s3)
	UploadDir      string             // served under /uploads/ when uploads are local, empty otherwise
	PublicLinkBase string             // base URL of short links
	ReloadTrigger  chan struct{}      // Channel to trigger a manual locale reload
	LoginBurst     int                // login attempts per IP before throttling
	LoginRefill    int                // login attempts regained per minute
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

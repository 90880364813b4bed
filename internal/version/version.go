// Package version holds build metadata injected with -ldflags.
package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"                           // ex: v0.3.0
	Commit    = "none"                          // ex: 9f2c1ab
	BuildDate = time.Now().Format(time.RFC3339) // overwritten at link time
	GoVersion = runtime.Version()
)

// UserAgent is sent on every backend request so the API can attribute dashboard traffic.
func UserAgent() string {
	return "linkdash/" + Version + " (" + Commit + ")"
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireEnv(t *testing.T) {
	t.Run("variable set", func(t *testing.T) {
		t.Setenv("LINKDASH_TEST_VAR", "value")
		assert.Equal(t, "value", requireEnv("LINKDASH_TEST_VAR"))
	})

	t.Run("variable not set", func(t *testing.T) {
		assert.Panics(t, func() { requireEnv("LINKDASH_TEST_VAR_MISSING") })
	})
}

func TestRequireURL(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  string
		wantPanic bool
	}{
		{name: "trailing slash trimmed", value: "https://api.example.com/", expected: "https://api.example.com"},
		{name: "with path", value: "http://localhost:5000/v1", expected: "http://localhost:5000/v1"},
		{name: "missing scheme", value: "api.example.com", wantPanic: true},
		{name: "garbage", value: "://", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LINKDASH_TEST_URL", tt.value)
			if tt.wantPanic {
				assert.Panics(t, func() { requireURL("LINKDASH_TEST_URL") })
				return
			}
			assert.Equal(t, tt.expected, requireURL("LINKDASH_TEST_URL"))
		})
	}
}

func TestGetenvAllowEmpty(t *testing.T) {
	assert.Equal(t, "Bearer", getenvAllowEmpty("LINKDASH_TEST_SCHEME_UNSET", "Bearer"))

	t.Setenv("LINKDASH_TEST_SCHEME", "")
	assert.Equal(t, "", getenvAllowEmpty("LINKDASH_TEST_SCHEME", "Bearer"))

	t.Setenv("LINKDASH_TEST_SCHEME", " Token ")
	assert.Equal(t, "Token", getenvAllowEmpty("LINKDASH_TEST_SCHEME", "Bearer"))
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "soon", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LINKDASH_TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, mustDuration("LINKDASH_TEST_DURATION", tt.def))
		})
	}
}

func TestMustBool(t *testing.T) {
	t.Setenv("LINKDASH_TEST_BOOL", "false")
	assert.False(t, mustBool("LINKDASH_TEST_BOOL", true))

	t.Setenv("LINKDASH_TEST_BOOL", "nope")
	assert.True(t, mustBool("LINKDASH_TEST_BOOL", true))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, splitAndTrim(` "a.example.com" , 'b.example.com',, `))
}

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LINKDASH_API_BASE_URL", "http://backend.local:5000/")
	t.Setenv("LINKDASH_LOG_LEVEL", "error")
}

func TestLoadDefaults(t *testing.T) {
	setMinimalEnv(t)

	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenPort)
	assert.Equal(t, "http://backend.local:5000", cfg.APIBaseURL)
	assert.Equal(t, "Bearer", cfg.APIAuthScheme)
	assert.Equal(t, "https://scanaqr.com", cfg.PublicLinkBase)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "local", cfg.UploadBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.UseRedis())
	assert.Nil(t, cfg.AllowedHosts)
}

func TestLoadOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LINKDASH_REDIS_ADDR", "localhost:6379")
	t.Setenv("LINKDASH_ALLOWED_HOSTS", "admin.example.com, *.example.com")
	t.Setenv("LINKDASH_UPLOAD_BACKEND", "S3")
	t.Setenv("LINKDASH_S3_BUCKET", "avatars")
	t.Setenv("LINKDASH_PUBLIC_LINK_BASE", "https://l.example.com/")

	cfg := Load()

	assert.True(t, cfg.UseRedis())
	assert.Equal(t, []string{"admin.example.com", "*.example.com"}, cfg.AllowedHosts)
	assert.Equal(t, "s3", cfg.UploadBackend)
	assert.Equal(t, "avatars", cfg.S3Bucket)
	assert.Equal(t, "https://l.example.com", cfg.PublicLinkBase)
}

func TestLoadRejectsInvalidUploadBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LINKDASH_UPLOAD_BACKEND", "ftp")

	assert.Panics(t, func() { Load() })
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LINKDASH_UPLOAD_BACKEND", "s3")

	assert.Panics(t, func() { Load() })
}

func TestRedacted(t *testing.T) {
	cfg := &Config{RedisUser: "admin", RedisPassword: "hunter2"}

	red := cfg.Redacted()

	require.Equal(t, "***REDACTED***", red.RedisPassword)
	assert.Equal(t, "***REDACTED***", red.RedisUser)
	assert.Equal(t, "hunter2", cfg.RedisPassword, "original must be untouched")
}

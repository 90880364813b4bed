package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Backend API
	APIBaseURL    string        // ex: https://api.litz.example
	APITimeout    time.Duration // per request (ex: 10s)
	APIAuthScheme string        // "Bearer" or "" for a raw token header

	PublicLinkBase string // base URL of short links, used by QR codes and "copy link"

	// i18n
	DefaultLanguage      string        // fallback language (ex: "en")
	LocalesDir           string        // optional override directory, empty = embedded only
	LocaleReloadInterval time.Duration // periodic locale reload

	// Sessions and list cache
	SessionCookie    string        // cookie name holding the session id
	SessionTTL       time.Duration // sliding lifetime of a session record
	SecureCookie     bool          // Secure flag on cookies
	CacheTTL         time.Duration // how long the last known rows of a list back a failed refresh
	JanitorInterval  time.Duration // eviction interval of in-memory stores
	LoginBurst       int           // login attempts per IP before throttling
	LoginRefillPerMn int           // login attempts regained per minute

	// Redis (empty address => in-memory stores)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           // warn after this many attempts

	// Upload storage
	UploadBackend string // "local" | "s3"
	UploadDir     string // local backend directory
	S3Bucket      string
	S3Region      string
	S3Endpoint    string // optional, for MinIO/LocalStack
	S3PublicURL   string // optional public base URL of the bucket

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to these IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		ListenPort:      getenv("LINKDASH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKDASH_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("LINKDASH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKDASH_PRETTY_LOG", true),

		APIBaseURL:    requireURL("LINKDASH_API_BASE_URL"),
		APITimeout:    mustDuration("LINKDASH_API_TIMEOUT", 10*time.Second),
		APIAuthScheme: getenvAllowEmpty("LINKDASH_API_AUTH_SCHEME", "Bearer"),

		PublicLinkBase: strings.TrimRight(getenv("LINKDASH_PUBLIC_LINK_BASE", "https://scanaqr.com"), "/"),

		DefaultLanguage:      getenv("LINKDASH_DEFAULT_LANGUAGE", "en"),
		LocalesDir:           getenv("LINKDASH_LOCALES_DIR", ""),
		LocaleReloadInterval: mustDuration("LINKDASH_LOCALE_RELOAD_INTERVAL", time.Hour),

		SessionCookie:    getenv("LINKDASH_SESSION_COOKIE", "linkdash_session"),
		SessionTTL:       mustDuration("LINKDASH_SESSION_TTL", 7*24*time.Hour),
		SecureCookie:     mustBool("LINKDASH_SECURE_COOKIE", true),
		CacheTTL:         mustDuration("LINKDASH_CACHE_TTL", 5*time.Minute),
		JanitorInterval:  mustDuration("LINKDASH_JANITOR_INTERVAL", time.Minute),
		LoginBurst:       getenvInt("LINKDASH_LOGIN_BURST", 10),
		LoginRefillPerMn: getenvInt("LINKDASH_LOGIN_REFILL_PER_MIN", 10),

		RedisAddr:           getenv("LINKDASH_REDIS_ADDR", ""),
		RedisUser:           getenv("LINKDASH_REDIS_USERNAME", ""),
		RedisPassword:       getenv("LINKDASH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("LINKDASH_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		UploadBackend: strings.ToLower(getenv("LINKDASH_UPLOAD_BACKEND", "local")),
		UploadDir:     getenv("LINKDASH_UPLOAD_DIR", "./uploads"),
		S3Bucket:      getenv("LINKDASH_S3_BUCKET", ""),
		S3Region:      getenv("LINKDASH_S3_REGION", "us-east-1"),
		S3Endpoint:    getenv("LINKDASH_S3_ENDPOINT", ""),
		S3PublicURL:   strings.TrimRight(getenv("LINKDASH_S3_PUBLIC_URL", ""), "/"),

		AllowedHosts: splitAndTrim(getenv("LINKDASH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LINKDASH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKDASH_TRUST_PROXY", true),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// UseRedis reports whether sessions and the list cache live in Redis.
func (c *Config) UseRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) validate() error {
	switch c.UploadBackend {
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("LINKDASH_UPLOAD_DIR is required when LINKDASH_UPLOAD_BACKEND=local")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("LINKDASH_S3_BUCKET is required when LINKDASH_UPLOAD_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown LINKDASH_UPLOAD_BACKEND %q (want local or s3)", c.UploadBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("LINKDASH_SESSION_TTL must be > 0, got %v", c.SessionTTL)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getenvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireURL(key string) string {
	v := requireEnv(key)
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: Invalid URL value for %s: %s", key, v))
	}
	return strings.TrimRight(v, "/")
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

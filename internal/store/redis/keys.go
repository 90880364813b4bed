package redis

const (
	// KeyPrefixSession is the prefix for session records
	KeyPrefixSession = "linkdash:session:"
	// KeyPrefixCache is the prefix for cached list payloads
	KeyPrefixCache = "linkdash:cache:"
	// KeyPrefixGeneration is the prefix for per-kind invalidation counters
	KeyPrefixGeneration = "linkdash:gen:"
)

// SessionKey returns the Redis key for a session by ID
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// CacheKey returns the Redis key for a cached list
func CacheKey(key string) string {
	return KeyPrefixCache + key
}

// GenerationKey returns the Redis key of the invalidation counter of a kind
func GenerationKey(kind string) string {
	return KeyPrefixGeneration + kind
}

package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	DatabaseSchema  string `envconfig:"DATABASE_SCHEMA" default:"lendmatch"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`

	// Upper bound for a single match run, including persistence
	MatchTimeoutSec uint `envconfig:"MATCH_TIMEOUT_SEC" default:"10"`

	// Token verification. Auth is disabled when JWKSURL is empty.
	JWKSURL           string `envconfig:"JWKS_URL"`
	AccessTokenCookie string `envconfig:"ACCESS_TOKEN_COOKIE" default:"access_token"`

	// Cookie encryption keys (base64 encoded)
	// openssl rand -base64 32
	// to generate values
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes

	// Per-quote run lock. Runs are not serialised when RedisURL is empty.
	RedisURL         string `envconfig:"REDIS_URL"`
	MatchLockTTLSec  uint   `envconfig:"MATCH_LOCK_TTL_SEC" default:"30"`
	MatchLockWaitSec uint   `envconfig:"MATCH_LOCK_WAIT_SEC" default:"5"`

	// Match run archive
	MatchAuditBucket string `envconfig:"MATCH_AUDIT_BUCKET"`
	MatchAuditPrefix string `envconfig:"MATCH_AUDIT_PREFIX" default:"match-runs"`
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean; every
// field has a development default so the service boots against the simulated
// ledger with zero environment.
type Server struct {
	Addr string

	// JWT
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	TokenTTL      time.Duration

	// Authority login. PassphraseHash is a bcrypt hash; when unset the
	// plaintext Passphrase is compared directly (development only).
	PassphraseHash string
	Passphrase     string

	// Brute-force guard policy.
	GuardMaxAttempts int
	GuardWindow      time.Duration
	GuardBanDuration time.Duration

	// PII envelope key, 64 hex chars (32 bytes).
	PIIKeyHex string

	// Credential payload fields.
	IssuerLabel     string
	CountryCode     string
	VerificationURL string
	UniqueIDLength  int

	// Optional infrastructure. Empty means "not configured" and the service
	// falls back to in-process implementations.
	RedisURL     string
	PostgresURL  string
	KafkaBrokers string
	AuditTopic   string

	// Ledger node endpoint. Empty selects the in-memory simulation.
	LedgerRPC string

	ExpiryCheckInterval time.Duration
}

// FromEnv builds a Server config from TOURCHAIN_* environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("TOURCHAIN_ADDR", ":8080"),
		JWTSigningKey: envOr("TOURCHAIN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("TOURCHAIN_JWT_ISSUER", "tourchain"),
		JWTAudience:   envOr("TOURCHAIN_JWT_AUDIENCE", "tourchain-authority"),
		TokenTTL:      envDuration("TOURCHAIN_TOKEN_TTL", 24*time.Hour),

		PassphraseHash: os.Getenv("TOURCHAIN_PASSPHRASE_HASH"),
		Passphrase:     envOr("TOURCHAIN_PASSPHRASE", "dev-passphrase"),

		GuardMaxAttempts: envInt("TOURCHAIN_GUARD_MAX_ATTEMPTS", 5),
		GuardWindow:      envDuration("TOURCHAIN_GUARD_WINDOW", 15*time.Minute),
		GuardBanDuration: envDuration("TOURCHAIN_GUARD_BAN_DURATION", 15*time.Minute),

		PIIKeyHex: os.Getenv("TOURCHAIN_PII_KEY"),

		IssuerLabel:     envOr("TOURCHAIN_ISSUER_LABEL", "Tourism Authority"),
		CountryCode:     envOr("TOURCHAIN_COUNTRY_CODE", "IN"),
		VerificationURL: envOr("TOURCHAIN_VERIFICATION_URL", "http://localhost:8080/api/verify"),
		UniqueIDLength:  envInt("TOURCHAIN_SHORT_ID_LENGTH", 10),

		RedisURL:     os.Getenv("TOURCHAIN_REDIS_URL"),
		PostgresURL:  os.Getenv("TOURCHAIN_POSTGRES_URL"),
		KafkaBrokers: os.Getenv("TOURCHAIN_KAFKA_BROKERS"),
		AuditTopic:   envOr("TOURCHAIN_AUDIT_TOPIC", "tourchain.audit"),

		LedgerRPC: os.Getenv("TOURCHAIN_LEDGER_RPC"),

		ExpiryCheckInterval: envDuration("TOURCHAIN_EXPIRY_CHECK_INTERVAL", time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

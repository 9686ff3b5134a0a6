package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	pkgstrings "fdctax/pkg/platform/strings"
)

const (
	devEncryptionKey = "jqm1A+b4h1iQdVyKXtB3/Of2Uu4KGz670GOs1oBFWVQ="
	devAdminToken    = "dev-admin-token-change-in-production"
)

// Config aggregates everything main needs to wire the server.
type Config struct {
	Server     Server
	Logging    LoggingConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Stripe     StripeConfig
	Resend     ResendConfig
	RAG        RAGConfig
	Onboarding OnboardingConfig
	RateLimit  RateLimitConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	AdminToken      string
	BaseURL         string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string
	Format string
}

// PostgresConfig selects the client CRM store. An empty DSN keeps everything in memory.
type PostgresConfig struct {
	DSN      string
	MaxConns int32
}

// RedisConfig selects the wizard session store. An empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig enables onboarding event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StripeConfig enables card payments for the paid ABN assistance tier.
type StripeConfig struct {
	SecretKey   string
	AmountCents int64
	Currency    string
}

// ResendConfig enables outbound email. Without an API key mail is only logged.
type ResendConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	AdminEmail string
}

// RAGConfig points the chat proxy at the knowledge-base microservice.
type RAGConfig struct {
	UpstreamURL string
	Timeout     time.Duration
}

// OnboardingConfig tunes the wizard sessions.
type OnboardingConfig struct {
	// EncryptionKey is a base64 32-byte key used to seal TFNs at rest.
	EncryptionKey      string
	SessionTTL         time.Duration
	ValidationDebounce time.Duration
	// ValidationURL delegates TFN/ABN checks to another deployment when set.
	ValidationURL string
}

// RateLimitConfig throttles the public validation endpoints per client IP.
type RateLimitConfig struct {
	ValidationPerSecond float64
	ValidationBurst     int
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            getEnv("FDC_ADDR", ":8080"),
			Environment:     getEnv("FDC_ENVIRONMENT", "sandbox"),
			AdminToken:      getEnv("ADMIN_API_TOKEN", devAdminToken),
			BaseURL:         getEnv("FDC_BASE_URL", "http://localhost:3000"),
			ReadTimeout:     getDuration("FDC_READ_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("FDC_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Postgres: PostgresConfig{
			DSN:      os.Getenv("DATABASE_URL"),
			MaxConns: int32(getInt("DATABASE_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: pkgstrings.SplitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_ONBOARDING_TOPIC", "fdctax.onboarding"),
		},
		Stripe: StripeConfig{
			SecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
			AmountCents: int64(getInt("ABN_ASSISTANCE_AMOUNT_CENTS", 9900)),
			Currency:    getEnv("ABN_ASSISTANCE_CURRENCY", "aud"),
		},
		Resend: ResendConfig{
			APIKey:     os.Getenv("RESEND_API_KEY"),
			FromEmail:  getEnv("RESEND_FROM_EMAIL", "hello@fdctax.com.au"),
			FromName:   getEnv("RESEND_FROM_NAME", "Luna at FDC Tax"),
			AdminEmail: getEnv("ADMIN_EMAIL", "info@fdctax.com.au"),
		},
		RAG: RAGConfig{
			UpstreamURL: getEnv("RAG_API_URL", "http://localhost:8002"),
			Timeout:     getDuration("RAG_API_TIMEOUT", 60*time.Second),
		},
		Onboarding: OnboardingConfig{
			EncryptionKey:      getEnv("ENCRYPTION_KEY", devEncryptionKey),
			SessionTTL:         getDuration("ONBOARDING_SESSION_TTL", 72*time.Hour),
			ValidationDebounce: getDuration("ONBOARDING_VALIDATION_DEBOUNCE", 500*time.Millisecond),
			ValidationURL:      os.Getenv("VALIDATION_API_URL"),
		},
		RateLimit: RateLimitConfig{
			ValidationPerSecond: getFloat("VALIDATION_RATE_PER_SECOND", 5),
			ValidationBurst:     getInt("VALIDATION_RATE_BURST", 20),
		},
	}
}

// Validate refuses the development secrets in production.
func (c Config) Validate() error {
	if c.Server.Environment != "production" {
		return nil
	}
	var errs []error
	if c.Onboarding.EncryptionKey == devEncryptionKey {
		errs = append(errs, errors.New("ENCRYPTION_KEY must be set in production"))
	}
	if c.Server.AdminToken == devAdminToken {
		errs = append(errs, errors.New("ADMIN_API_TOKEN must be set in production"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return def
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Site     SiteConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Mail     MailConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Tickets  TicketConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitBytes        int
}

// SiteConfig describes the public site used in outbound links.
type SiteConfig struct {
	URL  string
	Name string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	RunMigrations   bool
	ConnMaxIdleSec  int32
	ConnMaxLifeSec  int32
	ConnectAttempts int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret               string
	SessionTTLMinutes       int
	SecureCookies           bool
	BcryptCost              int
	VerificationTTLHours    int
	SignupSessionTTLMinutes int
}

// MailConfig selects and configures the outbound mail backend.
type MailConfig struct {
	Backend  string
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// KafkaConfig configures the best-effort ticket event sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StorageConfig locates uploaded files.
type StorageConfig struct {
	MediaRoot string
}

// TicketConfig holds ticket workflow tunables.
type TicketConfig struct {
	PageSize           int
	DefaultPriority    string
	DefaultStatus      string
	ResolvedStatus     string
	MaxAttachmentBytes int64
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	mailPort, err := strconv.Atoi(getEnv("MAIL_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			BodyLimitBytes:        getEnvAsInt("HTTP_BODY_LIMIT_BYTES", 8*1024*1024),
		},
		Site: SiteConfig{
			URL:  getEnv("SITE_URL", "http://localhost:8080"),
			Name: getEnv("SITE_NAME", "Help Desk"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("POSTGRES_DSN"),
			MaxConns:        int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:   getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec:  int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
			ConnectAttempts: getEnvAsInt("POSTGRES_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLMinutes:       getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 60*24*14),
			SecureCookies:           getEnvAsBool("AUTH_SECURE_COOKIES", false),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
			VerificationTTLHours:    getEnvAsInt("AUTH_VERIFICATION_TTL_HOURS", 24),
			SignupSessionTTLMinutes: getEnvAsInt("AUTH_SIGNUP_SESSION_TTL_MINUTES", 30),
		},
		Mail: MailConfig{
			Backend:  strings.ToLower(getEnv("MAIL_BACKEND", "console")),
			Host:     getEnv("MAIL_HOST", "localhost"),
			Port:     mailPort,
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getEnv("MAIL_FROM", "noreply@example.com"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "helpdesk.tickets"),
		},
		Storage: StorageConfig{
			MediaRoot: getEnv("MEDIA_ROOT", "media"),
		},
		Tickets: TicketConfig{
			PageSize:           getEnvAsInt("TICKET_PAGE_SIZE", 10),
			DefaultPriority:    getEnv("TICKET_DEFAULT_PRIORITY", "Low"),
			DefaultStatus:      getEnv("TICKET_DEFAULT_STATUS", "Open"),
			ResolvedStatus:     getEnv("TICKET_RESOLVED_STATUS", "Resolved"),
			MaxAttachmentBytes: int64(getEnvAsInt("TICKET_MAX_ATTACHMENT_BYTES", 5*1024*1024)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Mail.Backend {
	case "console", "smtp":
	default:
		return fmt.Errorf("invalid MAIL_BACKEND %q", c.Mail.Backend)
	}
	if c.Tickets.PageSize <= 0 {
		return fmt.Errorf("invalid TICKET_PAGE_SIZE %d", c.Tickets.PageSize)
	}
	if c.Tickets.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("invalid TICKET_MAX_ATTACHMENT_BYTES %d", c.Tickets.MaxAttachmentBytes)
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns how long a login session stays valid.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// VerificationTTL returns the lifetime of an agent verification token.
func (a AuthConfig) VerificationTTL() time.Duration {
	return time.Duration(a.VerificationTTLHours) * time.Hour
}

// SignupSessionTTL returns the lifetime of a signup wizard record.
func (a AuthConfig) SignupSessionTTL() time.Duration {
	return time.Duration(a.SignupSessionTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

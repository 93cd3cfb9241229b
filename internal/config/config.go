package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Gateway      GatewayConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `validate:"required"`
	Env                   string `validate:"required"`
	Host                  string
	Port                  string `validate:"required,numeric"`
	Version               string
	FrontendURL           string `validate:"required,url"`
	RequestTimeoutSeconds int    `validate:"gte=0"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string `validate:"required,hostname_port"`
	Password  string
	DB        int `validate:"gte=0"`
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// AuthConfig defines token and password parameters. Each token kind signs
// with its own secret; the secrets must differ so a token of one kind can
// never verify as another.
type AuthConfig struct {
	AccessSecret               string `validate:"required,min=16,nefield=RefreshSecret,nefield=LinkSecret"`
	RefreshSecret              string `validate:"required,min=16,nefield=LinkSecret"`
	LinkSecret                 string `validate:"required,min=16"`
	Issuer                     string `validate:"required"`
	AccessTokenTTLMinutes      int    `validate:"gt=0"`
	RefreshTokenTTLHours       int    `validate:"gt=0"`
	LinkTokenTTLHours          int    `validate:"gt=0"`
	IdentityCheckTimeoutMillis int    `validate:"gt=0"`
	BcryptCost                 int    `validate:"gte=4,lte=31"`
}

// GatewayConfig tunes the live connection gateway.
type GatewayConfig struct {
	SendBuffer          int `validate:"gt=0"`
	WriteTimeoutSeconds int `validate:"gt=0"`
	PingIntervalSeconds int `validate:"gt=0"`
	EventQueueSize      int `validate:"gt=0"`
	LegacyAudience      bool
	HandshakeRate       float64 `validate:"gte=0"`
	HandshakeBurst      int     `validate:"gte=0"`
}

// NotificationConfig holds outgoing mail settings.
type NotificationConfig struct {
	EmailFrom string `validate:"required,email"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	handshakeRate, err := strconv.ParseFloat(getEnv("GATEWAY_HANDSHAKE_RATE", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_HANDSHAKE_RATE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "task-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			FrontendURL:           getEnv("APP_FRONTEND_URL", "http://localhost:3001"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "task-gateway:"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			AccessSecret:               getEnv("AUTH_ACCESS_SECRET", "dev-access-secret-change-me"),
			RefreshSecret:              getEnv("AUTH_REFRESH_SECRET", "dev-refresh-secret-change-me"),
			LinkSecret:                 getEnv("AUTH_LINK_SECRET", "dev-link-secret-change-me"),
			Issuer:                     getEnv("AUTH_ISSUER", "task-gateway"),
			AccessTokenTTLMinutes:      getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			RefreshTokenTTLHours:       getEnvAsInt("AUTH_REFRESH_TOKEN_TTL_HOURS", 24*7),
			LinkTokenTTLHours:          getEnvAsInt("AUTH_LINK_TOKEN_TTL_HOURS", 24),
			IdentityCheckTimeoutMillis: getEnvAsInt("AUTH_IDENTITY_CHECK_TIMEOUT_MS", 2000),
			BcryptCost:                 getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Gateway: GatewayConfig{
			SendBuffer:          getEnvAsInt("GATEWAY_SEND_BUFFER", 32),
			WriteTimeoutSeconds: getEnvAsInt("GATEWAY_WRITE_TIMEOUT_SECONDS", 10),
			PingIntervalSeconds: getEnvAsInt("GATEWAY_PING_INTERVAL_SECONDS", 30),
			EventQueueSize:      getEnvAsInt("GATEWAY_EVENT_QUEUE_SIZE", 1024),
			LegacyAudience:      getEnvAsBool("GATEWAY_LEGACY_AUDIENCE", false),
			HandshakeRate:       handshakeRate,
			HandshakeBurst:      getEnvAsInt("GATEWAY_HANDSHAKE_BURST", 10),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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

// AccessTTL returns the default access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the default refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLHours) * time.Hour
}

// LinkTTL returns the lifetime used for emailed link tokens.
func (a AuthConfig) LinkTTL() time.Duration {
	return time.Duration(a.LinkTokenTTLHours) * time.Hour
}

// IdentityCheckTimeout bounds the post-verification existence lookup.
func (a AuthConfig) IdentityCheckTimeout() time.Duration {
	return time.Duration(a.IdentityCheckTimeoutMillis) * time.Millisecond
}

// WriteTimeout bounds a single frame write to a live connection.
func (g GatewayConfig) WriteTimeout() time.Duration {
	return time.Duration(g.WriteTimeoutSeconds) * time.Second
}

// PingInterval is the keepalive period for live connections.
func (g GatewayConfig) PingInterval() time.Duration {
	return time.Duration(g.PingIntervalSeconds) * time.Second
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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Lockout      LockoutConfig
	OAuth        OAuthConfig
	Directory    DirectoryConfig
	Frontend     FrontendConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret         string
	AccessTokenTTLHrs int
	BcryptCost        int
}

// LockoutConfig tunes the failed-login lockout guard.
type LockoutConfig struct {
	MaxAttempts          int
	AttemptWindowMinutes int
	LockoutMinutes       int
	IPAttemptMultiplier  int
}

// OAuthConfig holds external provider credentials.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	RedirectURL        string
	StateTTLSeconds    int
}

// DirectoryConfig selects and configures the credential directory backend.
type DirectoryConfig struct {
	Mode       string // "local" or "hosted"
	BaseURL    string
	ServiceKey string
}

// FrontendConfig carries the redirect base for email links.
type FrontendConfig struct {
	BaseURL string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom string
}

// Load reads configuration from environment variables, applying defaults where possible.
// A missing JWT secret is a configuration error: token issuance cannot work without it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}

	mode := getEnv("DIRECTORY_MODE", "local")
	if mode != "local" && mode != "hosted" {
		return nil, fmt.Errorf("invalid DIRECTORY_MODE: %s", mode)
	}
	if mode == "hosted" && os.Getenv("DIRECTORY_BASE_URL") == "" {
		return nil, errors.New("DIRECTORY_BASE_URL is required in hosted mode")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "vocab-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
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
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         secret,
			AccessTokenTTLHrs: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_HOURS", 72),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Lockout: LockoutConfig{
			MaxAttempts:          getEnvAsInt("LOCKOUT_MAX_ATTEMPTS", 5),
			AttemptWindowMinutes: getEnvAsInt("LOCKOUT_ATTEMPT_WINDOW_MINUTES", 15),
			LockoutMinutes:       getEnvAsInt("LOCKOUT_DURATION_MINUTES", 15),
			IPAttemptMultiplier:  getEnvAsInt("LOCKOUT_IP_ATTEMPT_MULTIPLIER", 2),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     os.Getenv("OAUTH_GOOGLE_CLIENT_ID"),
			GoogleClientSecret: os.Getenv("OAUTH_GOOGLE_CLIENT_SECRET"),
			RedirectURL:        getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/oauth/google/callback"),
			StateTTLSeconds:    getEnvAsInt("OAUTH_STATE_TTL_SECONDS", 600),
		},
		Directory: DirectoryConfig{
			Mode:       mode,
			BaseURL:    os.Getenv("DIRECTORY_BASE_URL"),
			ServiceKey: os.Getenv("DIRECTORY_SERVICE_KEY"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:3000"),
		},
		Notification: NotificationConfig{
			EmailFrom: getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
		},
	}

	return cfg, nil
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

// AttemptWindow returns the sliding window applied to failed-attempt counters.
func (l LockoutConfig) AttemptWindow() time.Duration {
	return time.Duration(l.AttemptWindowMinutes) * time.Minute
}

// LockoutDuration returns how long a locked account stays locked.
func (l LockoutConfig) LockoutDuration() time.Duration {
	return time.Duration(l.LockoutMinutes) * time.Minute
}

// TokenTTL returns the session token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.AccessTokenTTLHrs <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(a.AccessTokenTTLHrs) * time.Hour
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

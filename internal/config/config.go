package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Webhook  WebhookConfig
	Realtime RealtimeConfig
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

// RedisConfig holds Redis connection values for the presence index.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines connection authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// WebhookConfig defines the outbound webhook protocol parameters.
type WebhookConfig struct {
	Secret           string
	URL              string
	FreshnessSeconds int
	TimeoutSeconds   int
}

// RealtimeConfig tunes the broadcast side.
type RealtimeConfig struct {
	HeartbeatSeconds     int
	SendBufferSize       int
	ReconnectBaseDelayMS int
	MaxReconnectAttempts int
	WriteTimeoutSeconds  int
	PresenceTTLSeconds   int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "issue-notify-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_PRESENCE_ENABLED", false),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 1440),
		},
		Webhook: WebhookConfig{
			Secret:           getEnv("WEBHOOK_SECRET", "dev-webhook-secret"),
			URL:              os.Getenv("WEBHOOK_URL"),
			FreshnessSeconds: getEnvAsInt("WEBHOOK_FRESHNESS_SECONDS", 300),
			TimeoutSeconds:   getEnvAsInt("WEBHOOK_TIMEOUT_SECONDS", 10),
		},
		Realtime: RealtimeConfig{
			HeartbeatSeconds:     getEnvAsInt("REALTIME_HEARTBEAT_SECONDS", 30),
			SendBufferSize:       getEnvAsInt("REALTIME_SEND_BUFFER", 32),
			ReconnectBaseDelayMS: getEnvAsInt("REALTIME_RECONNECT_BASE_DELAY_MS", 2000),
			MaxReconnectAttempts: getEnvAsInt("REALTIME_MAX_RECONNECT_ATTEMPTS", 5),
			WriteTimeoutSeconds:  getEnvAsInt("REALTIME_WRITE_TIMEOUT_SECONDS", 10),
			PresenceTTLSeconds:   getEnvAsInt("REALTIME_PRESENCE_TTL_SECONDS", 120),
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

// Heartbeat returns the connection health probe interval.
func (r RealtimeConfig) Heartbeat() time.Duration {
	return time.Duration(r.HeartbeatSeconds) * time.Second
}

// ReconnectBaseDelay returns the base delay for linear reconnect backoff.
func (r RealtimeConfig) ReconnectBaseDelay() time.Duration {
	return time.Duration(r.ReconnectBaseDelayMS) * time.Millisecond
}

// WriteTimeout returns the per-message transport write deadline.
func (r RealtimeConfig) WriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeoutSeconds) * time.Second
}

// PresenceTTL returns the expiry applied to presence index entries.
func (r RealtimeConfig) PresenceTTL() time.Duration {
	return time.Duration(r.PresenceTTLSeconds) * time.Second
}

// FreshnessWindow returns the maximum accepted signature age.
func (w WebhookConfig) FreshnessWindow() time.Duration {
	return time.Duration(w.FreshnessSeconds) * time.Second
}

// Timeout returns the outbound delivery timeout.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutSeconds) * time.Second
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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	OTEL     OTELConfig
	Telegram TelegramConfig
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Name string
	Env  string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins string
	SSEHeartbeat   time.Duration
}

// DatabaseConfig holds database configuration.
// URL is either sqlite://<path> (sqlite:///<path> is accepted too) or a postgres:// URL.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	CookieName    string
	HashKey       string
	EncryptionKey string
	TTL           time.Duration
	Secure        bool
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// TelegramConfig holds the optional new-request notifier settings
type TelegramConfig struct {
	Enabled     bool
	Token       string
	ChatID      int64
	APIEndpoint string
}

// fileKeys maps "<table>.<key>" entries of the TOML config file onto the
// environment variables they provide defaults for.
var fileKeys = map[string]string{
	"app.name":               "APP_NAME",
	"app.env":                "APP_ENV",
	"server.host":            "SERVER_HOST",
	"server.port":            "SERVER_PORT",
	"server.allowed_origins": "ALLOWED_ORIGINS",
	"server.sse_heartbeat":   "SSE_HEARTBEAT",
	"database.url":           "DATABASE_URL",
	"redis.enabled":          "REDIS_ENABLED",
	"redis.host":             "REDIS_HOST",
	"redis.port":             "REDIS_PORT",
	"redis.password":         "REDIS_PASSWORD",
	"redis.db":               "REDIS_DB",
	"session.cookie_name":    "SESSION_COOKIE",
	"session.secret_key":     "SECRET_KEY",
	"session.encryption_key": "SESSION_ENCRYPTION_KEY",
	"session.ttl":            "SESSION_TTL",
	"session.secure":         "SESSION_SECURE",
	"otel.enabled":           "OTEL_ENABLED",
	"otel.endpoint":          "OTEL_ENDPOINT",
	"otel.service_name":      "OTEL_SERVICE_NAME",
	"otel.service_version":   "OTEL_SERVICE_VERSION",
	"telegram.enabled":       "TELEGRAM_ENABLED",
	"telegram.token":         "TELEGRAM_BOT_TOKEN",
	"telegram.chat_id":       "TELEGRAM_CHAT_ID",
	"telegram.api_endpoint":  "TELEGRAM_API_ENDPOINT",
}

// Load loads configuration from environment variables. When CONFIG_FILE names a
// TOML file, its values are used for variables that are not set.
func Load() (*Config, error) {
	defaults, err := readConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	env := source(defaults)

	port := env.getInt("PORT", 0)
	if port == 0 {
		port = env.getInt("SERVER_PORT", 5000)
	}

	cfg := &Config{
		App: AppConfig{
			Name: env.get("APP_NAME", "service-portal"),
			Env:  env.get("APP_ENV", "production"),
		},
		Server: ServerConfig{
			Host:           env.get("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: env.get("ALLOWED_ORIGINS", ""),
			SSEHeartbeat:   env.getDuration("SSE_HEARTBEAT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL: env.get("DATABASE_URL", "sqlite://service_portal.db"),
		},
		Redis: RedisConfig{
			Enabled:  env.getBool("REDIS_ENABLED", false),
			Host:     env.get("REDIS_HOST", "localhost"),
			Port:     env.getInt("REDIS_PORT", 6379),
			Password: env.get("REDIS_PASSWORD", ""),
			DB:       env.getInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			CookieName:    env.get("SESSION_COOKIE", "portal_session"),
			HashKey:       env.get("SECRET_KEY", "your_secret_key"),
			EncryptionKey: env.get("SESSION_ENCRYPTION_KEY", ""),
			TTL:           env.getDuration("SESSION_TTL", 24*time.Hour),
			Secure:        env.getBool("SESSION_SECURE", false),
		},
		OTEL: OTELConfig{
			ServiceName:    env.get("OTEL_SERVICE_NAME", "service-portal"),
			ServiceVersion: env.get("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       env.get("OTEL_ENDPOINT", ""),
			Enabled:        env.getBool("OTEL_ENABLED", false),
		},
		Telegram: TelegramConfig{
			Enabled:     env.getBool("TELEGRAM_ENABLED", false),
			Token:       env.get("TELEGRAM_BOT_TOKEN", ""),
			ChatID:      env.getInt64("TELEGRAM_CHAT_ID", 0),
			APIEndpoint: env.get("TELEGRAM_API_ENDPOINT", ""),
		},
	}

	if _, _, err := cfg.Database.Source(); err != nil {
		return nil, err
	}
	switch len(cfg.Session.EncryptionKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("SESSION_ENCRYPTION_KEY must be 16, 24 or 32 bytes, got %d", len(cfg.Session.EncryptionKey))
	}

	return cfg, nil
}

// Source splits the database URL into a driver name and a driver-specific DSN
func (c *DatabaseConfig) Source() (driver, dsn string, err error) {
	url := strings.TrimSpace(c.URL)
	switch {
	case url == "":
		return "", "", fmt.Errorf("DATABASE_URL is empty")
	case strings.HasPrefix(url, "sqlite:///"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite:///"), nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, url, nil
	case strings.Contains(url, "://"):
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme: %s", url[:strings.Index(url, "://")])
	default:
		return DriverSQLite, url, nil
	}
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment reports whether the app runs in development mode
func (c *AppConfig) IsDevelopment() bool {
	return c.Env == "development"
}

// readConfigFile flattens a TOML file into environment variable defaults
func readConfigFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var tables map[string]any
	if err := toml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	values := make(map[string]string)
	for table, raw := range tables {
		entries, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("config file %s: %q must be a table", path, table)
		}
		for key, value := range entries {
			envKey, ok := fileKeys[table+"."+key]
			if !ok {
				return nil, fmt.Errorf("config file %s: unknown key %s.%s", path, table, key)
			}
			values[envKey] = fmt.Sprint(value)
		}
	}
	return values, nil
}

// source resolves a variable from the environment first, then the config file
type source map[string]string

func (s source) lookup(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return s[key]
}

func (s source) get(key, defaultValue string) string {
	if value := s.lookup(key); value != "" {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s source) getInt64(key string, defaultValue int64) int64 {
	if value := s.lookup(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value := s.lookup(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.lookup(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	// StoreBackend selects the relational store: "sqlite" or "postgres".
	StoreBackend string
	SQLitePath   string
	DatabaseURL  string

	// TypingBackend selects where typing presence lives: "store" keeps it
	// in the relational store, "redis" uses TTL'd keys.
	TypingBackend string
	RedisURL      string

	JWTSecret   string
	UploadDir   string
	MaxUploadMB int
	CORSOrigins []string
	Debug       bool

	// MessageWindow is the size of the initial listRecent window.
	MessageWindow  int
	TypingTTL      time.Duration
	TypingDebounce time.Duration
}

func Load() (*Config, error) {
	// Missing .env is fine; env vars win either way.
	_ = godotenv.Load()

	cfg := &Config{
		AppName: getEnv("APP_NAME", "teamline"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "teamline.db"),

		TypingBackend: getEnv("TYPING_BACKEND", "store"),
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		UploadDir:   getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadMB: getEnvAsInt("MAX_UPLOAD_MB", 25),
		Debug:       getEnvAsBool("DEBUG", true),

		MessageWindow:  getEnvAsInt("MESSAGE_WINDOW", 50),
		TypingTTL:      getEnvAsDuration("TYPING_TTL", 6*time.Second),
		TypingDebounce: getEnvAsDuration("TYPING_DEBOUNCE", 2500*time.Millisecond),
	}

	if cfg.StoreBackend == "postgres" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
			Host:     fmt.Sprintf("%s:%s", getEnv("POSTGRES_HOST", "localhost"), getEnv("POSTGRES_PORT", "5432")),
			Path:     getEnv("POSTGRES_DB", "teamline"),
			RawQuery: "sslmode=disable",
		}
		cfg.DatabaseURL = getEnv("DATABASE_URL", u.String())
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreBackend {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be sqlite or postgres, got %q", cfg.StoreBackend)
	}
	switch cfg.TypingBackend {
	case "store", "redis":
	default:
		return nil, fmt.Errorf("TYPING_BACKEND must be store or redis, got %q", cfg.TypingBackend)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Package config loads process configuration from .env and the environment,
// following the teacher's env-first, no-framework loader idiom.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ProviderConfig holds the API key and base URL for one OpenAI-compatible
// provider backend.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// Config is the fully-resolved process configuration.
type Config struct {
	HTTPAddr string
	LogLevel string
	LogPath  string

	PostgresDSN string

	MongoURI      string
	MongoDatabase string

	Providers map[string]ProviderConfig
}

// Load reads .env (if present, falling back to example.env like the
// teacher's cmd/agentd/main.go), then overlays process environment
// variables on top of the defaults below.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("example.env")
	}

	cfg := &Config{
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogPath:       strings.TrimSpace(os.Getenv("LOG_PATH")),
		PostgresDSN:   strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		MongoURI:      envOr("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOr("MONGO_DATABASE", "dagchat"),
		Providers:     make(map[string]ProviderConfig),
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = buildPostgresDSN()
	}

	for _, name := range []string{"deepseek", "qwen", "kimi", "glm"} {
		upper := strings.ToUpper(name)
		key := strings.TrimSpace(os.Getenv(upper + "_API_KEY"))
		base := strings.TrimSpace(os.Getenv(upper + "_API_BASE_URL"))
		if key == "" && base == "" {
			continue
		}
		cfg.Providers[name] = ProviderConfig{APIKey: key, BaseURL: base}
	}

	return cfg, nil
}

func buildPostgresDSN() string {
	host := envOr("PG_HOST", "localhost")
	port := envOr("PG_PORT", "5432")
	user := envOr("PG_USER", "postgres")
	pass := strings.TrimSpace(os.Getenv("PG_PASSWORD"))
	db := envOr("PG_DATABASE", "dagchat")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

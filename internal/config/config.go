// Package config loads runtime settings for the accounts service.
//
// Values are resolved in three layers: envDefault tags, an optional YAML
// file named by CONFIG_FILE, and finally the process environment (which may
// itself be seeded from .env.local).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is empty")
)

// DefaultTokenInfoURL is Google's id_token introspection endpoint.
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// Config holds configuration for the accounts service.
type Config struct {
	Port        string `env:"PORT" envDefault:"5050"`
	DatabaseURL string `env:"DATABASE_URL"`

	// JWT signing
	JWTSecret  string        `env:"JWT_SECRET"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"24h"`

	// Google sign-in. An empty GoogleClientID accepts tokens for any audience.
	GoogleTokenInfoURL string        `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleTimeout      time.Duration `env:"GOOGLE_TIMEOUT" envDefault:"10s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:5174"`

	Env        string `env:"ENV" envDefault:"dev"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	DBLogLevel string `env:"DB_LOG_LEVEL" envDefault:"warn"`
}

// fileConfig is the YAML shape of CONFIG_FILE. Durations stay strings here
// and are parsed together with the environment.
type fileConfig struct {
	Port               string   `yaml:"port"`
	DatabaseURL        string   `yaml:"database_url"`
	JWTSecret          string   `yaml:"jwt_secret"`
	AccessTTL          string   `yaml:"jwt_access_ttl"`
	RefreshTTL         string   `yaml:"jwt_refresh_ttl"`
	GoogleTokenInfoURL string   `yaml:"google_tokeninfo_url"`
	GoogleClientID     string   `yaml:"google_client_id"`
	GoogleTimeout      string   `yaml:"google_timeout"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	Env                string   `yaml:"env"`
	LogLevel           string   `yaml:"log_level"`
	DBLogLevel         string   `yaml:"db_log_level"`
}

// Load reads .env.local (if present), the optional YAML file named by
// CONFIG_FILE and the environment, in that order of increasing precedence.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &file); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: overlayEnvironment(file),
	}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, file *fileConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, file); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// overlayEnvironment returns the process environment with file-provided
// values filled in for keys the environment leaves unset, so envDefault only
// applies when neither source names a value.
func overlayEnvironment(file fileConfig) map[string]string {
	out := env.ToMap(os.Environ())

	fill := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = value
		}
	}

	fill("PORT", file.Port)
	fill("DATABASE_URL", file.DatabaseURL)
	fill("JWT_SECRET", file.JWTSecret)
	fill("JWT_ACCESS_TTL", file.AccessTTL)
	fill("JWT_REFRESH_TTL", file.RefreshTTL)
	fill("GOOGLE_TOKENINFO_URL", file.GoogleTokenInfoURL)
	fill("GOOGLE_CLIENT_ID", file.GoogleClientID)
	fill("GOOGLE_TIMEOUT", file.GoogleTimeout)
	fill("ALLOWED_ORIGINS", strings.Join(file.AllowedOrigins, ","))
	fill("ENV", file.Env)
	fill("LOG_LEVEL", file.LogLevel)
	fill("DB_LOG_LEVEL", file.DBLogLevel)

	return out
}

// Validate checks that the settings the server cannot start without are present.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

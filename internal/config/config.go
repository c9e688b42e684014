// Package config reads tada's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"

	BackendSupabase = "supabase"
	BackendLocal    = "local"
)

var (
	ErrMissingCredentials = errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	ErrUnknownEnv         = errors.New("unknown env")
	ErrUnknownBackend     = errors.New("unknown backend")
)

type Config struct {
	Env     string `env:"TADA_ENV" env-default:"prod"`
	Backend string `env:"TADA_BACKEND" env-default:"supabase"`
	// Home holds credentials.json, the local database and the TUI log.
	Home string `env:"TADA_HOME"`
	// Token overrides the stored credentials with a raw access token.
	Token string `env:"TADA_TOKEN"`

	Supabase SupabaseConfig
	Local    LocalConfig
	HTTP     HTTPConfig
	Log      LogConfig
}

type SupabaseConfig struct {
	URL     string        `env:"SUPABASE_URL"`
	AnonKey string        `env:"SUPABASE_ANON_KEY"`
	Timeout time.Duration `env:"TADA_HTTP_TIMEOUT" env-default:"15s"`
}

type LocalConfig struct {
	DB        string `env:"TADA_LOCAL_DB"`
	JWTSecret string `env:"TADA_LOCAL_JWT_SECRET"`
}

type HTTPConfig struct {
	Host            string        `env:"TADA_HTTP_HOST" env-default:"127.0.0.1"`
	Port            string        `env:"TADA_HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"TADA_HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type LogConfig struct {
	Level string `env:"TADA_LOG_LEVEL"`
	File  string `env:"TADA_LOG_FILE"`
}

// Validate checks the settings that make the configured backend usable.
// ErrMissingCredentials is meant to be logged, not to stop the program.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnv, c.Env)
	}
	switch c.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return ErrMissingCredentials
		}
	case BackendLocal:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	return nil
}

// fill resolves the path defaults that depend on the home directory.
func (c *Config) fill() error {
	if c.Home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("config: home dir: %w", err)
		}
		c.Home = filepath.Join(h, ".tada")
	}
	if c.Local.DB == "" {
		c.Local.DB = filepath.Join(c.Home, "tada.db")
	}
	return nil
}

// TUILogPath is where the interactive list writes its log.
func (c *Config) TUILogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Home, "tada.log")
}

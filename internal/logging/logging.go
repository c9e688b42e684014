// Package logging builds the zerolog logger every component receives.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Makepad-fr/tada/internal/config"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
}

// Default is used until the config has been read.
func Default() zerolog.Logger {
	return zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
}

// New returns a logger for env writing to w. The local env gets the
// human-readable console writer; levelName, when set, overrides the env's
// level.
func New(env, levelName string, w io.Writer) (zerolog.Logger, error) {
	var level zerolog.Level
	switch env {
	case config.EnvDev:
		level = zerolog.DebugLevel
	case config.EnvProd:
		level = zerolog.InfoLevel
	case config.EnvLocal:
		level = zerolog.TraceLevel
		cw := zerolog.NewConsoleWriter()
		cw.TimeFormat = time.DateTime
		cw.Out = w
		w = cw
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", env)
	}
	if levelName != "" {
		l, err := zerolog.ParseLevel(levelName)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger(), nil
}

// OpenFile opens path for appending, creating its directory.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	return f, nil
}

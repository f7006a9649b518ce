package logger

import (
	"log/slog"
	"os"
	"sync"

	"notesync/internal/config"
)

var (
	singleton *slog.Logger
	once      sync.Once
)

// Init initializes the singleton logger from the provided config.
// It is thread-safe and idempotent: the first call wins and subsequent
// calls return the same logger instance.
func Init(cfg config.Config) (*slog.Logger, error) {
	once.Do(func() {
		opts := &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel),
		}

		var handler slog.Handler
		switch cfg.LogFormat {
		case "text":
			handler = slog.NewTextHandler(os.Stdout, opts)
		default:
			handler = slog.NewJSONHandler(os.Stdout, opts)
		}

		singleton = slog.New(handler)
	})

	return singleton, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the singleton logger instance.
// Init must be called first, otherwise this will return nil.
func L() *slog.Logger {
	return singleton
}

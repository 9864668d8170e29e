// Package logger wraps log/slog the way the reference stack's pkg/logger
// does: a package-level logger, JSON by default, with optional file
// rotation via lumberjack.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. Init must be called before use;
// until then it defaults to a stdout JSON logger at info level so
// early fatal errors still get logged.
var Log = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Config controls how Init builds the logger.
type Config struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, stderr, file
	FilePath string
}

// Init builds the package logger from cfg.
func Init(cfg Config) {
	var lvl slog.Level
	switch cfg.Level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var writer io.Writer
	switch cfg.Output {
	case "stderr":
		writer = os.Stderr
	case "file":
		path := cfg.FilePath
		if path == "" {
			path = "logs/router.log"
		}
		writer = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		}
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}

	Log = slog.New(handler)
}

// Fatal logs msg at error level and exits the process with status 1.
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}

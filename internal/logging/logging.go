// Package logging configures the slog logger shared by the binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dense-analysis/walletledger/internal/config"
)

// New builds a logger from the log settings.
//
// Output may be stdout, file or both. File output is rotated.
func New(settings config.Log) (*slog.Logger, error) {
	var output io.Writer

	switch settings.Output {
	case "", "stdout":
		output = os.Stdout
	case "file", "both":
		if err := os.MkdirAll(filepath.Dir(settings.File), 0o755); err != nil {
			return nil, fmt.Errorf("log directory: %w", err)
		}

		rotated := &lumberjack.Logger{
			Filename:   settings.File,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		}

		if settings.Output == "both" {
			output = io.MultiWriter(os.Stdout, rotated)
		} else {
			output = rotated
		}
	default:
		return nil, fmt.Errorf("unknown log output: %q", settings.Output)
	}

	options := &slog.HandlerOptions{Level: parseLevel(settings.Level)}

	if settings.Format == "text" {
		return slog.New(slog.NewTextHandler(output, options)), nil
	}

	return slog.New(slog.NewJSONHandler(output, options)), nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

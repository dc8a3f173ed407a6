package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dense-analysis/walletledger/internal/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "wallet.log")

	logger, err := New(config.Log{Level: "info", Format: "text", Output: "file", File: path})

	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hello")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file was not written: %v", err)
	}
}

func TestNewRejectsUnknownOutput(t *testing.T) {
	if _, err := New(config.Log{Output: "syslog"}); err == nil {
		t.Error("New() accepted an unknown output")
	}
}

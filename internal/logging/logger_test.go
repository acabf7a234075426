package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"correlationcount/internal/config"
)

func TestNewConsoleLineSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, cleanup, err := New(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "line"},
	}, Options{Console: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	logger.Debug("hidden")
	logger.Info("config changed", "key", "config", "revision", 1)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked through info level: %q", out)
	}
	if !strings.Contains(out, "msg=\"config changed\"") || strings.Contains(out, "time=") {
		t.Fatalf("unexpected console output %q", out)
	}
}

func TestNewTeeWritesBothSinks(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "cc.log")
	logger, cleanup, err := New(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "warn", Format: "json"},
		File:    config.LogSinkConfig{Enabled: true, Level: "debug", Format: "json", Path: path},
	}, Options{Console: &console})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger.Debug("schema detected", "version", "current")
	cleanup()

	if console.Len() != 0 {
		t.Fatalf("console sink must drop debug records, got %q", console.String())
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(body), &record); err != nil {
		t.Fatalf("unexpected file record %q: %v", body, err)
	}
	if record["version"] != "current" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestNewRejectsBadSinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.LogConfig
	}{
		{name: "no sinks", cfg: config.LogConfig{}},
		{name: "bad level", cfg: config.LogConfig{Console: config.LogSinkConfig{Enabled: true, Level: "loud", Format: "line"}}},
		{name: "bad format", cfg: config.LogConfig{Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml"}}},
	}
	for _, tt := range tests {
		if _, _, err := New(tt.cfg, Options{Console: &bytes.Buffer{}}); err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
	}
}

func TestColorLineWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := &colorLineWriter{dst: &buf}
	line := "level=INFO msg=\"edit\" stream=5f1e0c2a9b8d7e6f5a4b3c2d threshold=5\n"
	n, err := w.Write([]byte(line))
	if err != nil || n != len(line) {
		t.Fatalf("unexpected write result %d %v", n, err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, ansiBlue) || !strings.Contains(out, ansiCyan+"5f1e0c2a9b8d7e6f5a4b3c2d") {
		t.Fatalf("unexpected colored output %q", out)
	}

	buf.Reset()
	if _, err := w.Write([]byte("plain\n")); err != nil || buf.String() != "plain\n" {
		t.Fatalf("unexpected passthrough %q %v", buf.String(), err)
	}
}

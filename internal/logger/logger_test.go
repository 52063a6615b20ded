package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	err := Init(Config{
		Debug:     false,
		ConfigDir: configDir,
	})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	logDir := filepath.Join(configDir, "logs")
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		t.Errorf("Log directory was not created: %s", logDir)
	}

	if Logger == nil {
		t.Fatal("Logger is nil after initialization")
	}

	Warn("Test warning message", "component", "streak")

	if _, err := os.Stat(filepath.Join(logDir, "dytgt.log")); os.IsNotExist(err) {
		t.Error("Log file was not created after a warning was written")
	}
}

func TestInitDebugMode(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "config")

	if err := Init(Config{Debug: true, ConfigDir: configDir}); err != nil {
		t.Fatalf("Failed to initialize logger in debug mode: %v", err)
	}

	if Logger == nil {
		t.Error("Logger is nil after initialization")
	}

	Debug("Test debug message in debug mode")
	Info("Test info message in debug mode")
}

func TestSetOutputLevels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantDebug bool
	}{
		{name: "normal mode drops debug", debug: false, wantDebug: false},
		{name: "debug mode keeps debug", debug: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetOutput(&buf, tt.debug)

			Debug("debug line")
			Warn("warn line", "key", "dytgt:streak")

			out := buf.String()
			if got := strings.Contains(out, "debug line"); got != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(out, "warn line") {
				t.Errorf("warn line missing from output: %q", out)
			}
			if !strings.Contains(out, "dytgt:streak") {
				t.Errorf("keyvals missing from output: %q", out)
			}
		})
	}
}

func TestLogFunctionsWithoutInit(t *testing.T) {
	Logger = nil

	// These should not panic when Logger is nil
	Debug("Test debug message")
	Info("Test info message")
	Warn("Test warning message")
	Error("Test error message")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, false)

	With("component", "entitlement").Warn("refresh failed")

	out := buf.String()
	if !strings.Contains(out, "component=entitlement") {
		t.Errorf("sub-logger fields missing from output: %q", out)
	}

	Logger = nil
	With("component", "streak").Warn("dropped")
}

func TestInitJSONFormat(t *testing.T) {
	configDir := t.TempDir()
	if err := Init(Config{ConfigDir: configDir, Format: "json"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if want := filepath.Join(configDir, "logs", "dytgt.log"); Path() != want {
		t.Errorf("Path() = %q, want %q", Path(), want)
	}

	var buf bytes.Buffer
	Logger.SetOutput(&buf)
	Warn("persist failed", "key", "dytgt:streak")

	out := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"key":"dytgt:streak"`) {
		t.Errorf("expected a JSON log line, got %q", out)
	}
}

package telemetry

import (
	"log/slog"
	"testing"
)

func TestSetupLogger_Levels(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tc := range cases {
		SetupLogger("text", tc.level)
		if !slog.Default().Enabled(nil, tc.want) {
			t.Errorf("level %q: expected %v to be enabled", tc.level, tc.want)
		}
		if tc.want > slog.LevelDebug && slog.Default().Enabled(nil, tc.want-4) {
			t.Errorf("level %q: expected %v to be disabled", tc.level, tc.want-4)
		}
	}
}

func TestSetupLogger_JSONFormat(t *testing.T) {
	// Smoke test: installing the JSON handler must not panic and must become
	// the process default.
	SetupLogger("json", "info")
	if slog.Default() == nil {
		t.Fatal("default logger not installed")
	}
}

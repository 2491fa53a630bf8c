package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWithContext(t *testing.T) {
	if WithContext(context.Background()) != Get() {
		t.Fatal("expected default logger for a bare context")
	}
	l := Get().With("request_id", "r1")
	if WithContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected the stored logger")
	}
}

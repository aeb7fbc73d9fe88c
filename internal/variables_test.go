package internal

import (
	"log/slog"
	"testing"
)

func TestLogLevel(t *testing.T) {
	defer SetDebug(IsDebug())
	defer SetQuiet(IsQuiet())

	tests := []struct {
		name  string
		debug bool
		quiet bool
		want  slog.Level
	}{
		{name: "default", want: slog.LevelInfo},
		{name: "quiet", quiet: true, want: slog.LevelWarn},
		{name: "debug", debug: true, want: slog.LevelDebug},
		{name: "debug wins", debug: true, quiet: true, want: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetDebug(tt.debug)
			SetQuiet(tt.quiet)
			if got := LogLevel(); got != tt.want {
				t.Fatalf("LogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

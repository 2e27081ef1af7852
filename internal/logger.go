package internal

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON slog.Logger whose level follows the environment
func NewLogger(env string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(env),
	})
	return slog.New(handler)
}

func parseLevel(env string) slog.Level {
	switch env {
	case "production", "staging":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

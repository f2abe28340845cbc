package logging

import (
	"log/slog"
	"os"
)

// Setup installs a JSON slog logger on stdout. Development builds log at debug level.
func Setup(env string) *slog.JSONHandler {
	level := slog.LevelInfo
	if env == "development" {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return handler
}

// Command web serves the ETL inspector HTTP API, the job queue and the
// WebSocket status stream.
package main

import (
	"log/slog"
	"os"

	"etlinspector/internal/app"
	"etlinspector/internal/config"
)

func main() {
	if path, err := config.LoadDotEnv(); err != nil {
		slog.Error("Failed to load .env file", slog.String("error", err.Error()))
		os.Exit(1)
	} else if path != "" {
		slog.Info("Loaded environment file", slog.String("path", path))
	}

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"

	"github.com/vadim/poolsmm/internal/app"
	"github.com/vadim/poolsmm/internal/config"
	"github.com/vadim/poolsmm/internal/telemetry"
)

func main() {
	cfg := config.MustLoad()
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}
}

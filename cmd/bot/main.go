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

	botApp, err := app.NewBotApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize bot", "error", err)
		os.Exit(1)
	}

	if err := botApp.Run(ctx); err != nil {
		logger.Error("bot error", "error", err)
		os.Exit(1)
	}
}

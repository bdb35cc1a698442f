package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockcheckertool/pkg/cli"
	"stockcheckertool/pkg/core/config"
	"stockcheckertool/pkg/core/logging"
)

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Printf("[FATAL] Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	defer app.Close()

	if err := cli.Serve(ctx, app, cfg.Server.Addr); err != nil {
		logger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"shortlink/pkg/config"
	httphandler "shortlink/pkg/http"
	"shortlink/pkg/logging"
	"shortlink/pkg/server"
)

// The redirect server only resolves short links; creation goes through
// cmd/api. Scale it independently against the same store.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(logging.LevelError).Error(context.Background(), "load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(logging.LogLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, logger, httphandler.SetupRedirectRoutes)
	if err != nil {
		logger.Error(ctx, "failed to start redirect server", "error", err)
		os.Exit(1)
	}
	if err := app.ListenAndServe(ctx); err != nil {
		logger.Error(ctx, "redirect server error", "error", err)
		os.Exit(1)
	}
}

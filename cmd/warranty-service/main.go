// Package main Warranty Certificate API
//
// @title           Warranty Certificate API
// @version         1.0
// @description     Issue, search, edit and print product warranty certificates.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/warranty-service/internal/app/warranty"
	"github.com/magabrotheeeer/warranty-service/internal/config"
	"github.com/magabrotheeeer/warranty-service/internal/lib/logger"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env, os.Stdout)

	log.Info("starting warranty-service", slog.String("env", cfg.Env))
	log.Debug("configuration loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := warranty.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("warranty-service stopped gracefully")
}

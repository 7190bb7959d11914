package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/cinego/internal/app"
	"github.com/iliyamo/cinego/internal/config"
	"github.com/iliyamo/cinego/internal/logger"
)

func main() {
	_ = godotenv.Load() // .env is optional outside local development

	cfg := config.Load()
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := app.NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Error("server init failed")
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

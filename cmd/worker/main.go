// Command worker consumes hold-expiry and notification queues and runs the
// periodic sweeps.
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
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env).WithComponent("worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := app.NewWorker(cfg, log)
	if err != nil {
		log.WithError(err).Error("worker init failed")
		os.Exit(1)
	}
	if err := w.Run(ctx); err != nil {
		log.WithError(err).Error("worker exited")
		os.Exit(1)
	}
}

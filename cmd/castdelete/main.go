package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/mrcasterbaldman/caster-bot/internal/retirement"
	"github.com/sirupsen/logrus"
)

// castdelete runs the cast retirement monitor on its own, for deployments
// that keep it out of the main bot process.
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.LoadFeed()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	feed := neynar.NewClient(cfg.NeynarAPIKey, cfg.SignerUUID, cfg.NeynarBaseURL)
	if err := retirement.NewMonitor(feed, cfg.FID).Run(ctx); err != nil && ctx.Err() == nil {
		logrus.Fatalf("Cast retirement monitor failed: %v", err)
	}
}

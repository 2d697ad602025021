package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrcasterbaldman/caster-bot/internal/chain"
	"github.com/mrcasterbaldman/caster-bot/internal/clanker"
	"github.com/mrcasterbaldman/caster-bot/internal/config"
	"github.com/mrcasterbaldman/caster-bot/internal/dispatch"
	"github.com/mrcasterbaldman/caster-bot/internal/eligibility"
	"github.com/mrcasterbaldman/caster-bot/internal/monitoring"
	"github.com/mrcasterbaldman/caster-bot/internal/neynar"
	"github.com/mrcasterbaldman/caster-bot/internal/notifications"
	"github.com/mrcasterbaldman/caster-bot/internal/retirement"
	"github.com/mrcasterbaldman/caster-bot/internal/scheduler"
	"github.com/mrcasterbaldman/caster-bot/internal/sources"
	"github.com/mrcasterbaldman/caster-bot/internal/state"
	"github.com/mrcasterbaldman/caster-bot/internal/storage"
	"github.com/mrcasterbaldman/caster-bot/internal/textgen"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting Mr. Caster Baldman")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageClient, err := openStorage(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	processed, standings, err := state.Open(storageClient)
	if err != nil {
		logrus.Fatalf("Failed to load state: %v", err)
	}

	rpc, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to chain: %v", err)
	}
	defer rpc.Close()

	ledger, err := chain.NewERC20Ledger(rpc, cfg.TokenAddress, cfg.AgentPrivateKey)
	if err != nil {
		logrus.Fatalf("Failed to initialize token ledger: %v", err)
	}
	gate, err := chain.NewNFTGate(rpc, cfg.NFTAddress)
	if err != nil {
		logrus.Fatalf("Failed to initialize NFT gate: %v", err)
	}
	if err := ledger.DescribeAgent(ctx, cfg.TokenSymbol); err != nil {
		logrus.Warnf("Could not load agent balances: %v", err)
	}

	feed := neynar.NewClient(cfg.NeynarAPIKey, cfg.SignerUUID, cfg.NeynarBaseURL)
	deployer := clanker.NewClient(cfg.ClankerAPIKey, cfg.ClankerURL)
	text := textgen.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	notificationService := notifications.NewService(cfg)

	dispatcher := dispatch.NewDispatcher(feed, text, ledger, deployer, standings, notificationService, dispatch.Options{
		TokenSymbol:    cfg.TokenSymbol,
		RankingsURL:    cfg.RankingsURL,
		DeployName:     cfg.DeployName,
		DeploySymbol:   cfg.DeploySymbol,
		DeployImageURL: cfg.DeployImageURL,
	})

	monitoringService := monitoring.NewService(
		sources.NewFarcasterSource(feed, cfg.FID, processed),
		eligibility.NewSelector(gate, cfg.DeployTrigger),
		dispatcher,
		processed,
	)

	schedulerService := scheduler.NewService(cfg, feed, text, standings, notificationService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitoringService.Run(ctx)
	}()

	if cfg.EnableCastRetirement {
		wg.Add(1)
		go func() {
			defer wg.Done()
			retirement.NewMonitor(feed, cfg.FID).Run(ctx)
		}()
	}

	router := newRouter(ctx, &wg, monitoringService, standings)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	wg.Wait()
	logrus.Info("Server exited")
}

func openStorage(cfg *config.Config) (storage.StorageInterface, error) {
	switch cfg.StorageBackend {
	case "azure":
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	default:
		return storage.NewFileStorage(cfg.DataDir)
	}
}

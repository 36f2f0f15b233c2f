package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"option-calc-go/internal/api"
	"option-calc-go/internal/config"
	"option-calc-go/internal/database"
	"option-calc-go/internal/logger"
	"option-calc-go/internal/valuation"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	conv, err := valuation.ParseConventions(cfg.Conventions.CommissionBase, cfg.Conventions.InterestBase)
	if err != nil {
		log.Fatal("Invalid conventions", zap.Error(err))
	}
	engine := valuation.NewEngine(conv)

	// Seed the fee profile catalog
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to open fee profile catalog", zap.Error(err))
	}
	defer database.CloseDB(db)
	log.Info("Fee profile catalog seeded", zap.Int("profiles", len(cfg.Profiles())))

	server := api.NewServer(&cfg, log, engine, database.NewFeeProfileRepo(db), api.NewMetrics("api"))
	server.Start()

	// Wait for shutdown signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shipmux/shipmux/internal/jobs"
	"github.com/shipmux/shipmux/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipmux",
	Short:   "Shipmux - multi-carrier shipping gateway with quota and address-book caching",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	RunE:  runServe,
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one address-book retention pass and exit",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	} else {
		defer tracerShutdown(ctx)
	}

	store, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("opening address store: %w", err)
	}
	defer store.Close()

	book := initAddressBook(cfg, store, logger)
	limiter := initLimiter(cfg)
	registry := initShipperRegistry(cfg, limiter, book, logger)
	gw := initGateway(registry, book, limiter, logger)

	retention := jobs.NewRetentionJob(book, cfg.CleanupSchedule,
		time.Duration(cfg.AddressRetentionDays)*24*time.Hour, logger)
	if err := retention.Start(); err != nil {
		return fmt.Errorf("starting retention job: %w", err)
	}
	defer retention.Stop()

	logger.Info("Starting Shipmux gateway",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", registry.Names()),
	)

	srv := server.New(server.Config{Port: cfg.Port}, gw, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := initStore(cfg)
	if err != nil {
		return fmt.Errorf("opening address store: %w", err)
	}
	defer store.Close()

	book := initAddressBook(cfg, store, logger)
	job := jobs.NewRetentionJob(book, cfg.CleanupSchedule,
		time.Duration(cfg.AddressRetentionDays)*24*time.Hour, logger)
	return job.RunOnce(ctx)
}

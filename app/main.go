package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/postwatch/postwatch/app/api"
	"github.com/postwatch/postwatch/app/cfg"
	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/monitor"
	"github.com/postwatch/postwatch/app/notify"
	"github.com/postwatch/postwatch/app/seed"
	"github.com/postwatch/postwatch/app/source"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting PostWatch", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	channelRepo := database.NewChannelRepository(db)
	accountRepo := database.NewAccountRepository(db)
	ledgerRepo := database.NewLedgerRepository(db)

	if appCfg.SeedFile != "" {
		if err := seed.NewLoader(channelRepo, accountRepo).Apply(appCfg.SeedFile); err != nil {
			slog.Error("Failed to apply seed file", "path", appCfg.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	// One limiter across all accounts keeps the aggregate request rate
	// within the source API allowance.
	limiter := rate.NewLimiter(rate.Every(time.Duration(appCfg.FetchMinInterval)*time.Second), 1)

	sourceClient := source.NewClient(&http.Client{
		Timeout: time.Duration(appCfg.SourceTimeout) * time.Second,
	}, limiter)
	notifyClient := notify.NewClient(&http.Client{
		Timeout: 30 * time.Second,
	})

	orchestrator := monitor.NewOrchestrator(sourceClient, notifyClient, accountRepo, ledgerRepo)
	mon := monitor.NewMonitor(orchestrator, time.Duration(appCfg.CheckInterval)*time.Second)
	defer mon.Shutdown()

	if appCfg.StartOnBoot {
		mon.Start()
	}

	apiHandler := api.NewHandler(channelRepo, accountRepo, sourceClient, mon)
	server := api.NewServer(apiHandler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Monitor is shut down via defer
	slog.Info("Shutdown complete")
}

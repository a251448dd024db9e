package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leadflow/leadflow/internal/config"
	"github.com/leadflow/leadflow/internal/logging"
	"github.com/leadflow/leadflow/internal/services"
)

func main() {
	configDir := flag.String("config", config.DefaultConfigDir, "Directory holding config.yml and security.yaml")
	envFile := flag.String("env", ".env", "Optional dotenv file")
	flag.Parse()

	if err := config.LoadEnvFiles(*envFile); err != nil {
		slog.Error("Failed to load env file", "error", err)
		os.Exit(1)
	}

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		slog.Error("Failed to initialize logging", "error", err)
		os.Exit(1)
	}
	defer func() { _ = logging.Shutdown() }()

	slog.Info("Starting LeadFlow API", "port", cfg.Server.HTTPPort)

	// 2. Initialize Service Manager
	mgr := services.NewManager(cfg, slog.Default())

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mgr.Init(initCtx); err != nil {
		slog.Error("Failed to initialize services", "error", err)
		_ = logging.Shutdown()
		os.Exit(1)
	}

	// 3. Start Services
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	if err := mgr.Start(bgCtx); err != nil {
		slog.Error("Failed to start services", "error", err)
		_ = logging.Shutdown()
		os.Exit(1)
	}

	// 4. Wait for Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-quit:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-mgr.Errors():
		slog.Error("Service failed, shutting down", "error", err)
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	bgCancel()
	mgr.Shutdown(shutdownCtx)

	slog.Info("All services stopped")
	if exitCode != 0 {
		_ = logging.Shutdown()
		os.Exit(exitCode)
	}
}

// Command leadflow-seed resets the database to a demo data set.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/leadflow/leadflow/internal/config"
	"github.com/leadflow/leadflow/internal/core/storage"
	"github.com/leadflow/leadflow/internal/logging"
	"github.com/leadflow/leadflow/internal/seed"
)

func main() {
	configDir := flag.String("config", config.DefaultConfigDir, "Directory holding config.yml")
	envFile := flag.String("env", ".env", "Optional dotenv file")
	count := flag.Int("leads", seed.DefaultLeads, "Number of leads to generate")
	randSeed := flag.Uint64("seed", 0, "Random seed (0 picks one from the clock)")
	flag.Parse()

	if err := run(*configDir, *envFile, seed.Options{Leads: *count, Seed: *randSeed}); err != nil {
		slog.Error("Seeding failed", "error", err)
		os.Exit(1)
	}
}

func run(configDir, envFile string, opts seed.Options) error {
	if err := config.LoadEnvFiles(envFile); err != nil {
		return err
	}
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return err
	}

	cfg.Logging.File.Enabled = false
	if err := logging.Initialize(cfg.Logging); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	factory, err := storage.NewFactory(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := factory.Close(); err != nil {
			slog.Warn("Error closing storage", "error", err)
		}
	}()

	if err := factory.EnsureIndexes(ctx); err != nil {
		return err
	}

	res, err := seed.Run(ctx, factory.User(), factory.Lead(), opts, slog.Default())
	if err != nil {
		return err
	}

	slog.Info("Database seeded", "leads", res.Leads)
	slog.Info("You can now log in", "email", seed.DefaultEmail, "password", seed.DefaultPassword)
	return nil
}

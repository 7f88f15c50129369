package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"einkauf/internal/auth"
	"einkauf/internal/backend"
	"einkauf/internal/config"
	applog "einkauf/internal/log"
	"einkauf/internal/services"
)

// One-shot migration of the local record store into the hosted backend.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentMigration)
	applog.SetDefault(logger)

	userID := flag.String("user", "", "remote user id to migrate into")
	force := flag.Bool("force", false, "re-run even when the completion marker is set")
	dryRun := flag.Bool("dry-run", false, "report what would be migrated and exit")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall migration timeout")
	flag.Parse()

	if *userID == "" {
		logger.Error("the -user flag is required")
		os.Exit(2)
	}

	cfg := config.Load()
	// The migration always targets the hosted backend, whatever the
	// server is configured to run.
	cfg.DataBackend = backend.RemoteBackend.String()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	session := auth.Session{UserID: *userID}
	migrator := services.NewMigrator(be.Local, be.Gateway.ForUser(*userID), be.Gateway, be.AMQP)

	pf, err := migrator.CheckPreflight(ctx, session)
	if err != nil {
		logger.Error("Preflight failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Preflight",
		"role", pf.Role,
		"hasRemoteData", pf.HasRemoteData,
		"alreadyMigrated", pf.AlreadyMigrated,
		"localCategories", pf.LocalCategories,
		"localPurchases", pf.LocalPurchases)

	if *dryRun {
		return
	}

	report, err := migrator.Run(ctx, session, *force)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyMigrated) {
			logger.Warn("Local data already migrated, re-run with -force to repeat")
			os.Exit(1)
		}
		logger.Error("Migration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Migration complete",
		"categories", report.Categories,
		"markets", report.Markets,
		"items", report.Items,
		"purchases", report.Purchases,
		"lineItems", report.LineItems,
		"skippedDuplicates", report.SkippedDupes,
		"skippedLineItems", report.SkippedLines,
		"failedPurchases", report.FailedHeaders)
}

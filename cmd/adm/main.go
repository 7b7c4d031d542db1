// Package main provides the beta portal admin CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"betaportal/cmd/adm/commands"
	"betaportal/internal/config"
	"betaportal/internal/database"
	"betaportal/internal/observability"
	"betaportal/internal/services"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The CLI talks to the database directly; exporters would only add connection noise
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "beta-portal-admin", "error")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	// Migrations are run explicitly via `adm migrate up`
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err, map[string]interface{}{"db_url": cfg.Database.URL})
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	policy := services.NewAccessPolicy(cfg.Access.AdminUserIDs)
	numbering := services.NewNumberingService(logger)
	testers := services.NewTesterService(db, logger, nil)
	bugs := services.NewBugService(db, logger, numbering, testers, nil)
	features := services.NewFeatureService(db, logger, numbering, testers, nil)
	triage := services.NewTriageService(bugs, features, testers, services.CreateEmailService(cfg, logger), logger, nil)
	votes := services.NewVoteService(db, logger, nil)
	seed := services.NewSeedService(db, logger, numbering, policy)

	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "Beta Portal Administration Tool",
		Long: `Beta Portal Administration Tool

Schema migrations, demo data, tester management and database maintenance.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.MigrateCommands(dbManager, cfg.Database, logger))
	rootCmd.AddCommand(commands.SeedCommand(seed))
	rootCmd.AddCommand(commands.TesterCommands(testers, triage, logger))
	rootCmd.AddCommand(commands.DatabaseCommands(votes, logger, db))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

package commands

import (
	"fmt"

	"betaportal/internal/config"
	"betaportal/internal/database"
	"betaportal/internal/observability"

	"github.com/spf13/cobra"
)

// MigrateCommands returns the schema migration commands
func MigrateCommands(dbManager *database.Manager, cfg config.DatabaseConfig, logger *observability.Logger) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := dbManager.RunMigrations(ctx, cfg); err != nil {
				logger.Error(ctx, "Migration failed", err, map[string]interface{}{"db_url": maskDatabaseURL(cfg.URL)})
				return err
			}
			version, _, err := dbManager.MigrationVersion(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is at version %d\n", version)
			return nil
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			version, dirty, err := dbManager.MigrationVersion(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d (dirty)\n", version)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d\n", version)
			return nil
		},
	})

	return migrateCmd
}

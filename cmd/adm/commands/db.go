package commands

import (
	"context"
	"database/sql"
	"fmt"

	"betaportal/internal/database"
	"betaportal/internal/observability"
	contextutils "betaportal/internal/utils"

	"github.com/spf13/cobra"
)

// VoteReconciler rewrites denormalized vote counters from the vote rows
type VoteReconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// tableStats are the row counts shown by `db stats`, in display order
var tableStats = []struct {
	label string
	query string
}{
	{"Testers", `SELECT COUNT(*) FROM testers`},
	{"Pending testers", `SELECT COUNT(*) FROM testers WHERE status = 'pending'`},
	{"Bug reports", `SELECT COUNT(*) FROM bug_reports`},
	{"Feature requests", `SELECT COUNT(*) FROM feature_requests`},
	{"Comments", `SELECT COUNT(*) FROM comments`},
	{"Votes", `SELECT COUNT(*) FROM votes`},
	{"Attachments", `SELECT COUNT(*) FROM attachments`},
	{"Announcements", `SELECT COUNT(*) FROM announcements`},
	{"Vote counter drift", `SELECT COUNT(*) FROM feature_requests f
		WHERE f.vote_count <> (SELECT COUNT(*) FROM votes v WHERE v.feature_request_id = f.id)`},
}

// DatabaseCommands returns the database maintenance commands
func DatabaseCommands(votes VoteReconciler, logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance commands",
		Long: `Database maintenance commands for the beta portal.

Available commands:
  stats            - Show row counts for every table
  reconcile-votes  - Recompute feature vote counters from the vote rows
  reset            - Delete ALL portal data and restart report numbering`,
	}

	dbCmd.AddCommand(statsCmd(logger, db))
	dbCmd.AddCommand(reconcileVotesCmd(votes))
	dbCmd.AddCommand(resetCmd(logger, db))

	return dbCmd
}

func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if db == nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "database connection not available")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, getDatabaseInfo(db))
			for _, st := range tableStats {
				var n int
				if err := db.QueryRowContext(ctx, st.query).Scan(&n); err != nil {
					logger.Error(ctx, "Failed to read table statistics", err, map[string]interface{}{"stat": st.label})
					return contextutils.WrapErrorf(err, "failed to read %s", st.label)
				}
				fmt.Fprintf(out, "%-20s %d\n", st.label, n)
			}
			return nil
		},
	}
}

func reconcileVotesCmd(votes VoteReconciler) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-votes",
		Short: "Recompute every feature's vote count from its votes",
		Long: `Recompute every feature's vote count from its votes.

Seeded features carry preset vote counts with no vote rows behind them, so
reconciling resets those counters to the number of real votes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := votes.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d feature vote counts\n", n)
			return nil
		},
	}
}

func resetCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all testers, reports, comments, votes, attachments and announcements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if db == nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "database connection not available")
			}

			if !yes {
				if !stdinIsTerminal() {
					return contextutils.ErrorWithContextf("refusing to reset the database without --yes")
				}
				fmt.Fprintln(cmd.OutOrStdout(), getDatabaseInfo(db))
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "This PERMANENTLY deletes all portal data. Continue?") {
					fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled")
					return nil
				}
			}

			if err := database.TruncateAll(ctx, db); err != nil {
				logger.Error(ctx, "Database reset failed", err, nil)
				return err
			}
			logger.Info(ctx, "Database reset from CLI", nil)
			fmt.Fprintln(cmd.OutOrStdout(), "Database reset. Run `adm seed` to load demo data.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

package commands

import (
	"context"
	"fmt"

	"betaportal/internal/models"
	"betaportal/internal/observability"
	"betaportal/internal/services"
	contextutils "betaportal/internal/utils"

	"github.com/spf13/cobra"
)

// TesterAdmin covers the tester operations the CLI needs
type TesterAdmin interface {
	List(ctx context.Context, status string) ([]models.TesterWithCounts, error)
	GetByID(ctx context.Context, id int) (*models.Tester, error)
	Delete(ctx context.Context, id int) (*services.TesterDeletion, error)
}

// TesterTriage covers approval and suspension
type TesterTriage interface {
	ApproveTester(ctx context.Context, id int) (*models.Tester, error)
	SuspendTester(ctx context.Context, id int) (*models.Tester, error)
}

// TesterCommands returns the tester management commands
func TesterCommands(testers TesterAdmin, triage TesterTriage, logger *observability.Logger) *cobra.Command {
	testersCmd := &cobra.Command{
		Use:   "testers",
		Short: "Beta tester management",
		Long: `Beta tester management.

Available commands:
  list      - List testers, optionally filtered by status
  approve   - Approve a pending tester and send the welcome email
  suspend   - Suspend a tester's portal access
  delete    - Delete a tester and everything they own`,
	}

	testersCmd.AddCommand(listTestersCmd(testers))
	testersCmd.AddCommand(statusTesterCmd("approve", "Approve a tester", triage.ApproveTester, logger))
	testersCmd.AddCommand(statusTesterCmd("suspend", "Suspend a tester", triage.SuspendTester, logger))
	testersCmd.AddCommand(deleteTesterCmd(testers, logger))

	return testersCmd
}

func listTestersCmd(testers TesterAdmin) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List testers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := testers.List(cmd.Context(), status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No testers found")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-24s %-32s %-10s %-6s %-8s %-10s\n", "ID", "Name", "Email", "Status", "Bugs", "Features", "Registered")
			for _, t := range list {
				fmt.Fprintf(out, "%-5d %-24s %-32s %-10s %-6d %-8d %-10s\n",
					t.ID,
					truncate(t.Name, 24),
					truncate(t.Email, 32),
					t.Status,
					t.Counts.BugReports,
					t.Counts.FeatureRequests,
					t.RegisteredAt.Format("2006-01-02"),
				)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, approved, active, suspended)")

	return cmd
}

func statusTesterCmd(use, short string, apply func(context.Context, int) (*models.Tester, error), logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tester, err := apply(cmd.Context(), id)
			if err != nil {
				return err
			}
			logger.Info(cmd.Context(), "Tester status changed from CLI", map[string]interface{}{
				"tester_id": tester.ID,
				"status":    string(tester.Status),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Tester %d (%s) is now %s\n", tester.ID, tester.Email, tester.Status)
			return nil
		},
	}
}

func deleteTesterCmd(testers TesterAdmin, logger *observability.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tester and all of their reports, comments, votes and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if !yes {
				if !stdinIsTerminal() {
					return contextutils.ErrorWithContextf("refusing to delete tester %d without --yes", id)
				}
				tester, err := testers.GetByID(ctx, id)
				if err != nil {
					return err
				}
				question := fmt.Sprintf("Delete %s <%s> and everything they own?", tester.Name, tester.Email)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), question) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			deleted, err := testers.Delete(ctx, id)
			if err != nil {
				return err
			}
			logger.Info(ctx, "Tester deleted from CLI", map[string]interface{}{"tester_id": id})
			fmt.Fprintf(cmd.OutOrStdout(),
				"Deleted tester %d: %d bug reports, %d feature requests, %d comments, %d votes, %d attachments\n",
				deleted.TesterID, deleted.BugReports, deleted.Features, deleted.Comments, deleted.Votes, deleted.Attachments)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

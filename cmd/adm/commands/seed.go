package commands

import (
	"context"
	"fmt"

	"betaportal/internal/services"

	"github.com/spf13/cobra"
)

// Seeder runs the sample-data bootstrap
type Seeder interface {
	Run(ctx context.Context, callerExternalID string) (*services.SeedResult, error)
}

// SeedCommand returns the seed command. The seed owner is the first configured
// admin ID unless --owner is given and no allow-list exists.
func SeedCommand(seeder Seeder) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo bugs, features, comments and announcements",
		Long: `Load the embedded demo fixture. Each step only runs when its table is
empty, so running seed twice is harmless.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := seeder.Run(cmd.Context(), owner)
			if err != nil {
				return err
			}
			for _, line := range result.Results {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "External identity ID that owns the seed data")

	return cmd
}

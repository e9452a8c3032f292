package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volumod/tracker/internal/seed"
	"github.com/volumod/tracker/internal/store"
)

// newSeedCmd creates the seed command.
func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the data directory with demo fixtures",
		Long: `Seed the data directory with demo users, projects, modules, issues,
and tasks. Seeding is idempotent: if accounts already exist, nothing
is written.

Demo accounts (one per role):
  john_doe / password123    operator
  jane_smith / pass456      inspector
  mike_jones / secure789    manager`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			if err := seed.Run(s, logger); err != nil {
				return err
			}
			fmt.Println("Data directory ready:", cfg.DataDir)
			return nil
		},
	}
}

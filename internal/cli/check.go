package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/volumod/tracker/internal/store"
)

// newCheckCmd creates the check command, which validates the data
// directory: schema headers, enum values, and cross-table references.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			if err := s.VerifyReferences(); err != nil {
				return err
			}
			fmt.Println("OK:", cfg.DataDir)
			return nil
		},
	}
}

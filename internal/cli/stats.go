package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/volumod/tracker/internal/report"
	"github.com/volumod/tracker/internal/store"
)

// newStatsCmd creates the stats command.
func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print project completion and issue counts",
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
			reporter := report.New(s)

			summaries, err := reporter.Summaries()
			if err != nil {
				return err
			}
			categories, err := reporter.CategoryCounts()
			if err != nil {
				return err
			}
			overdue, err := reporter.OverdueTasks()
			if err != nil {
				return err
			}

			if jsonOut || !isatty.IsTerminal(os.Stdout.Fd()) {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"projects":         summaries,
					"issue_categories": categories,
					"overdue_tasks":    overdue,
				})
			}

			fmt.Println("Projects")
			for _, sum := range summaries {
				fmt.Printf("  %-6s %-28s %-10s %5.1f%% complete, %d modules, %d open issues\n",
					sum.Project.ID, sum.Project.Name, sum.Project.Status,
					sum.Completion*100, sum.Modules, sum.OpenIssues)
			}

			if len(categories) > 0 {
				fmt.Println("Issues by category")
				for category, count := range categories {
					fmt.Printf("  %-20s %d\n", category, count)
				}
			}

			if len(overdue) > 0 {
				fmt.Println("Overdue tasks")
				for _, t := range overdue {
					fmt.Printf("  %-6s due %s  %s (assigned to %s)\n",
						t.ID, t.DueDate.Format("2006-01-02"), t.Description, t.AssignedTo)
				}
			}
			return nil
		},
	}
}

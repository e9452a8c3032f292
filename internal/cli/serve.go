package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/volumod/tracker/internal/api"
	"github.com/volumod/tracker/internal/db"
	"github.com/volumod/tracker/internal/notify"
	"github.com/volumod/tracker/internal/store"
)

// newServeCmd creates the serve command for the dashboard server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long: `Start the tracker API server for the browser dashboard.

The server provides REST endpoints for projects, modules, issues, tasks,
notifications, and reports, plus a WebSocket notification stream. A
background scanner turns overdue tasks into notifications while the
server runs.

Example:
  tracker serve              # Start on the configured address (default :8080)
  tracker serve --addr :3000 # Start on a custom address`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
			}

			s, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			if err := s.VerifyReferences(); err != nil {
				logger.Warn("reference check found dangling ids", "error", err)
			}

			d, err := db.Open(cfg.DB.Path)
			if err != nil {
				return err
			}
			defer d.Close()

			pub := notify.NewMemoryPublisher(notify.WithBufferSize(cfg.Notify.Buffer))
			defer pub.Close()
			engine := notify.NewEngine(s, d, pub, logger)

			server := api.New(api.Config{Addr: cfg.Server.Addr, Logger: logger}, s, d, engine, pub)
			scanner := notify.NewScanner(engine, cfg.Notify.ScanInterval)

			fmt.Printf("Starting dashboard server on %s...\n", cfg.Server.Addr)
			fmt.Println("Press Ctrl+C to stop")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				cancel()
			}()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.StartContext(gctx)
			})
			g.Go(func() error {
				err := scanner.Run(gctx)
				if err == context.Canceled {
					return nil
				}
				return err
			})
			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides config)")
	return cmd
}

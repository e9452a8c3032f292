// Package cli implements the tracker command-line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/volumod/tracker/internal/config"
)

var (
	cfgFile string
	verbose bool
	jsonOut bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Production tracking backend for modular construction",
	Long: `tracker is the backend for the modular-construction production dashboard.

It keeps projects, modules, quality issues, and work tasks in plain CSV
tables, derives notifications into SQLite, and serves the browser
dashboard over REST and WebSocket.

Quick start:
  tracker seed                Populate a data directory with demo fixtures
  tracker serve               Start the dashboard API server
  tracker stats               Print project completion and issue counts
  tracker user add            Create an account`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is tracker.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.tracker")
		viper.SetConfigType("yaml")
		viper.SetConfigName("tracker")
	}

	viper.SetEnvPrefix("TRACKER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// loadConfig resolves the effective configuration: file (if found by
// viper), then TRACKER_* environment overrides.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.ConfigFileUsed())
}

// newLogger builds the process logger. Verbose switches to debug level;
// --json or a non-terminal stderr switches to JSON output.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOut || !isatty.IsTerminal(os.Stderr.Fd()) {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

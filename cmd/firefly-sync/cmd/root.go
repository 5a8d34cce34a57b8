// Package cmd provides CLI commands for firefly-sync.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pigeonworks-llc/firefly-sync/pkg/config"
	"github.com/pigeonworks-llc/firefly-sync/pkg/db"
	"github.com/pigeonworks-llc/firefly-sync/pkg/pathutil"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "firefly-sync",
	Short: "Sync Kresus bank data to Firefly III",
	Long: `firefly-sync is a CLI tool that reconciles the accounts and
transactions of a Kresus instance into a Firefly III ledger.

It supports:
- Matching records already present in Firefly III
- Creating missing accounts and transactions, updating changed ones
- Recording every run in a SQLite history and a CSV report
- Dry-run mode for testing

Example:
  firefly-sync sync --since 2024-01-01
  firefly-sync sync --dry-run
  firefly-sync stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug || os.Getenv("DEBUG") == "true" {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pruneCmd)
}

// loadConfig loads and validates the configuration.
func loadConfig(required ...[]string) *config.Config {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}
	return cfg
}

func newPathResolver(cfg *config.Config) *pathutil.PathResolver {
	return pathutil.New(pathutil.Config{
		DataDir:      cfg.Paths.DataDir,
		DatabasePath: cfg.Paths.DBPath,
		ReportsDir:   cfg.Paths.ReportsDir,
	})
}

// openHistory opens the sync history database. The caller closes the
// returned connection.
func openHistory(paths *pathutil.PathResolver) (*db.Connection, *db.SyncHistory) {
	dbPath := paths.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	return conn, db.NewSyncHistory(conn)
}

// Exit codes of the commands.
const (
	exitOK             = 0
	exitFailure        = 1
	exitRecordFailures = 2 // the run completed but some records failed
)

// printError logs err and returns the exit code of a failed command.
func printError(w io.Writer, err error, msg string) int {
	slog.Error(msg, "error", err)
	fmt.Fprintf(w, "Error: %s: %v\n", msg, err)
	return exitFailure
}

// Helper function to handle errors and exit. Only for use before a command
// holds resources released by defer.
func exitOnError(err error, msg string) {
	if err != nil {
		os.Exit(printError(os.Stderr, err, msg))
	}
}

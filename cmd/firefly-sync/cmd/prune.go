package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var keepDays int

// pruneCmd represents the prune command.
var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old sync runs from the history",
	Long: `Delete sync runs older than the given number of days, with their
record outcomes. CSV reports are left untouched.

Example:
  firefly-sync prune --keep-days 90`,
	Run: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&keepDays, "keep-days", 180, "Number of days of history to keep")
}

func runPrune(cmd *cobra.Command, args []string) {
	if code := prune(); code != exitOK {
		os.Exit(code)
	}
}

func prune() int {
	if keepDays < 0 {
		exitOnError(fmt.Errorf("--keep-days must not be negative"), "invalid flag")
	}
	cfg := loadConfig([]string{"paths", "dataDir"})

	conn, syncHistory := openHistory(newPathResolver(cfg))
	defer conn.Close()

	cutoff := time.Now().AddDate(0, 0, -keepDays)
	deleted, err := syncHistory.DeleteRunsBefore(context.Background(), cutoff)
	if err != nil {
		return printError(os.Stderr, err, "failed to prune history")
	}

	slog.Info("History pruned", "before", cutoff.Format(time.RFC3339), "deleted_runs", deleted)
	fmt.Printf("Deleted %d run(s) started before %s\n", deleted, cutoff.Format("2006-01-02"))
	return exitOK
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var recentRuns int

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display sync statistics",
	Long: `Display statistics about past sync runs.

Shows:
- Total number of runs, aborted runs and dry runs
- Total number of created, updated and failed records
- Last run and last successful run
- The most recent runs

Example:
  firefly-sync stats
  firefly-sync stats --runs 20`,
	Run: runStats,
}

func init() {
	statsCmd.Flags().IntVar(&recentRuns, "runs", 5, "Number of recent runs to list")
}

func runStats(cmd *cobra.Command, args []string) {
	if code := showStats(); code != exitOK {
		os.Exit(code)
	}
}

func showStats() int {
	slog.Info("Loading configuration")
	cfg := loadConfig([]string{"paths", "dataDir"})

	conn, syncHistory := openHistory(newPathResolver(cfg))
	defer conn.Close()

	ctx := context.Background()

	// Get statistics
	stats, err := syncHistory.GetStats(ctx)
	if err != nil {
		return printError(os.Stderr, err, "failed to get statistics")
	}

	// Display statistics
	fmt.Println("\n=== Sync Statistics ===")
	fmt.Printf("Total runs:        %d (aborted %d, dry %d)\n", stats.TotalRuns, stats.AbortedRuns, stats.DryRuns)
	fmt.Printf("Records created:   %d\n", stats.TotalCreated)
	fmt.Printf("Records updated:   %d\n", stats.TotalUpdated)
	fmt.Printf("Records failed:    %d\n", stats.TotalFailed)

	if stats.LastRun.Valid {
		fmt.Printf("Last run:          %s\n", stats.LastRun.String)
	} else {
		fmt.Printf("Last run:          (never)\n")
	}
	if stats.LastSuccessfulRun != "" {
		fmt.Printf("Last successful:   %s at %s\n", stats.LastSuccessfulRun, stats.LastSuccessfulAt)
	}

	if recentRuns > 0 {
		runs, err := syncHistory.ListRuns(ctx, recentRuns)
		if err != nil {
			return printError(os.Stderr, err, "failed to list runs")
		}

		if len(runs) > 0 {
			fmt.Println("\n=== Recent Runs ===")
		}
		for _, r := range runs {
			mode := ""
			if r.DryRun {
				mode = " [dry run]"
			}
			fmt.Printf("%s  %-8s created=%d updated=%d skipped=%d failed=%d remote_only=%d%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.State,
				r.Created, r.Updated, r.Skipped, r.Failed, r.RemoteOnlyTransactions, mode)
			if r.Error.Valid {
				fmt.Printf("    error: %s\n", r.Error.String)
			}
		}
	}

	fmt.Println()

	slog.Info("Statistics displayed successfully")
	return exitOK
}

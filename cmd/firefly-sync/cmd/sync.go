package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/config"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
	"github.com/pigeonworks-llc/firefly-sync/pkg/kresus"
	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
	"github.com/pigeonworks-llc/firefly-sync/pkg/report"
	"github.com/spf13/cobra"
)

var (
	dateSince    string
	dateUntil    string
	dryRun       bool
	summaryWidth int
)

// syncCmd represents the sync command.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Kresus accounts and transactions to Firefly III",
	Long: `Reconcile Kresus data into Firefly III.

This command:
1. Fetches accounts and transactions from Kresus and Firefly III
2. Matches local records against existing remote records
3. Creates missing accounts and transactions, updates changed ones
4. Records the run in SQLite and writes a CSV report

Remote records missing from Kresus are reported, never deleted.

Example:
  firefly-sync sync
  firefly-sync sync --since 2024-01-01 --until 2024-01-31
  firefly-sync sync --dry-run`,
	Run: runSync,
}

func init() {
	// Flags
	syncCmd.Flags().StringVar(&dateSince, "since", "", "Start date (YYYY-MM-DD) (default START_DATE or one year ago)")
	syncCmd.Flags().StringVar(&dateUntil, "until", "", "End date (YYYY-MM-DD) (default today)")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (plan only, no writes to Firefly III)")
	syncCmd.Flags().IntVar(&summaryWidth, "width", 100, "Summary word wrap width (0 prints raw markdown)")
}

func runSync(cmd *cobra.Command, args []string) {
	if code := syncOnce(); code != exitOK {
		os.Exit(code)
	}
}

// syncOnce runs one sync and returns the process exit code. Once the history
// database is open it returns instead of exiting, so deferred cleanup runs.
func syncOnce() int {
	cfg := loadConfig(
		[]string{"firefly", "apiUrl"},
		[]string{"firefly", "accessToken"},
		[]string{"kresus", "apiUrl"},
		[]string{"kresus", "mappingPath"},
		[]string{"paths", "dataDir"},
	)

	since, until, err := syncWindow(cfg)
	exitOnError(err, "invalid sync window")

	mapping, err := kresus.LoadMapping(cfg.Kresus.MappingPath)
	exitOnError(err, "failed to load account mapping")

	// Initialize components
	pathResolver := newPathResolver(cfg)
	conn, syncHistory := openHistory(pathResolver)
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := kresus.NewSource(
		kresus.NewClient(kresus.ClientConfig{APIURL: cfg.Kresus.APIURL}),
		mapping,
		kresus.SourceOptions{DefaultCurrency: cfg.Sync.DefaultCurrency},
	)
	remote := firefly.NewClient(firefly.ClientConfig{
		APIURL:      cfg.Firefly.APIURL,
		AccessToken: cfg.Firefly.AccessToken,
		Timeout:     cfg.Sync.OperationTimeout,
	})

	engine := reconcile.New(remote, source, reconcile.Options{
		DateToleranceDays:   cfg.Sync.DateToleranceDays,
		SimilarityThreshold: cfg.Sync.SimilarityThreshold,
		Concurrency:         cfg.Sync.Concurrency,
		OperationTimeout:    cfg.Sync.OperationTimeout,
		Since:               since,
		Until:               until,
		DryRun:              dryRun,
		Reporters: []reconcile.Reporter{
			syncHistory,
			report.NewCSVReporter(pathResolver, slog.Default()),
			report.NewSummaryReporter(os.Stdout, summaryWidth),
		},
	})

	result, err := engine.Run(ctx)
	return syncExitCode(os.Stderr, result, err)
}

// syncExitCode reports the outcome of a run on w and returns its exit code.
func syncExitCode(w io.Writer, result *reconcile.SyncResult, err error) int {
	switch {
	case err != nil:
		return printError(w, err, "sync failed")
	case result.HasFailures():
		fmt.Fprintf(w, "%d record(s) failed, see the report of run %s\n", len(result.Failed), result.RunID)
		return exitRecordFailures
	}
	return exitOK
}

// syncWindow resolves the sync window from the flags, falling back to
// START_DATE. Zero dates are left to the engine defaults.
func syncWindow(cfg *config.Config) (since, until civil.Date, err error) {
	since = cfg.Sync.StartDate
	if dateSince != "" {
		if since, err = civil.ParseDate(dateSince); err != nil {
			return since, until, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if dateUntil != "" {
		if until, err = civil.ParseDate(dateUntil); err != nil {
			return since, until, fmt.Errorf("invalid --until: %w", err)
		}
	}
	if since.IsValid() && until.IsValid() && until.Before(since) {
		return since, until, fmt.Errorf("--until %s is before start date %s", until, since)
	}
	return since, until, nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/config"
	"github.com/pigeonworks-llc/firefly-sync/pkg/firefly"
	"github.com/pigeonworks-llc/firefly-sync/pkg/kresus"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/pathutil"
	"github.com/pigeonworks-llc/firefly-sync/pkg/reconcile"
	"github.com/pigeonworks-llc/firefly-sync/pkg/report"
	"github.com/spf13/cobra"
)

var exportSource string

// exportCmd represents the export command.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export accounts and transactions to CSV",
	Long: `Export the accounts and transactions of one side of the sync to CSV
files under the data directory (exports/<source>-accounts.csv and
exports/<source>-transactions.csv).

Sources:
- remote: the Firefly III ledger
- local:  the mapped Kresus records, as the sync sees them

Example:
  firefly-sync export --source remote --since 2024-01-01
  firefly-sync export --source local`,
	Run: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSource, "source", "remote", "Records to export (remote or local)")
	exportCmd.Flags().StringVar(&dateSince, "since", "", "Start date (YYYY-MM-DD) (default START_DATE or one year ago)")
	exportCmd.Flags().StringVar(&dateUntil, "until", "", "End date (YYYY-MM-DD) (default today)")
}

// lister is satisfied by both sides of the sync.
type lister interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
}

func runExport(cmd *cobra.Command, args []string) {
	var required [][]string
	switch exportSource {
	case "remote":
		required = [][]string{{"firefly", "apiUrl"}, {"firefly", "accessToken"}}
	case "local":
		required = [][]string{{"kresus", "apiUrl"}, {"kresus", "mappingPath"}}
	default:
		exitOnError(fmt.Errorf("unknown source %q", exportSource), "invalid flag")
	}
	cfg := loadConfig(append(required, []string{"paths", "dataDir"})...)

	since, until, err := syncWindow(cfg)
	exitOnError(err, "invalid export window")
	if !until.IsValid() {
		until = civil.DateOf(time.Now())
	}
	if !since.IsValid() {
		since = until.AddDays(-reconcile.DefaultLookbackDays)
	}

	ctx := context.Background()
	var (
		accounts     []ledger.Account
		transactions []ledger.Transaction
	)
	if exportSource == "remote" {
		accounts, transactions, err = exportRemote(ctx, cfg, since, until)
	} else {
		accounts, transactions, err = exportLocal(ctx, cfg, since, until)
	}
	exitOnError(err, "failed to fetch records")

	pathResolver := newPathResolver(cfg)
	accountsPath := pathResolver.GetExportPath(exportSource + "-accounts.csv")
	transactionsPath := pathResolver.GetExportPath(exportSource + "-transactions.csv")

	exitOnError(writeExport(pathResolver, accountsPath, func(f *os.File) error {
		return report.WriteAccountsCSV(f, accounts)
	}), "failed to export accounts")
	exitOnError(writeExport(pathResolver, transactionsPath, func(f *os.File) error {
		return report.WriteTransactionsCSV(f, transactions)
	}), "failed to export transactions")

	slog.Info("Export completed",
		"source", exportSource,
		"since", since,
		"until", until,
		"accounts", len(accounts),
		"transactions", len(transactions),
	)
	fmt.Println(accountsPath)
	fmt.Println(transactionsPath)
}

func exportRemote(ctx context.Context, cfg *config.Config, since, until civil.Date) ([]ledger.Account, []ledger.Transaction, error) {
	client := firefly.NewClient(firefly.ClientConfig{
		APIURL:      cfg.Firefly.APIURL,
		AccessToken: cfg.Firefly.AccessToken,
		Timeout:     cfg.Sync.OperationTimeout,
	})

	accounts, err := listAccounts(ctx, client)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := client.ListTransactions(ctx, since, until)
	if err != nil {
		return nil, nil, err
	}
	return accounts, transactions, nil
}

func exportLocal(ctx context.Context, cfg *config.Config, since, until civil.Date) ([]ledger.Account, []ledger.Transaction, error) {
	mapping, err := kresus.LoadMapping(cfg.Kresus.MappingPath)
	if err != nil {
		return nil, nil, err
	}
	source := kresus.NewSource(
		kresus.NewClient(kresus.ClientConfig{APIURL: cfg.Kresus.APIURL}),
		mapping,
		kresus.SourceOptions{DefaultCurrency: cfg.Sync.DefaultCurrency},
	)

	accounts, err := listAccounts(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	transactions, err := source.ListTransactions(ctx, since)
	if err = skipRejected(err); err != nil {
		return nil, nil, err
	}

	inWindow := transactions[:0]
	for _, t := range transactions {
		if !t.Date.After(until) {
			inWindow = append(inWindow, t)
		}
	}
	return accounts, inWindow, nil
}

func listAccounts(ctx context.Context, l lister) ([]ledger.Account, error) {
	accounts, err := l.ListAccounts(ctx)
	if err = skipRejected(err); err != nil {
		return nil, err
	}
	return accounts, nil
}

// skipRejected logs the records a source rejected and clears the error.
func skipRejected(err error) error {
	var recErr *ledger.RecordErrors
	if !errors.As(err, &recErr) {
		return err
	}
	for _, r := range recErr.Rejected {
		slog.Warn("Skipping rejected record", "record", r.Record, "error", r.Err)
	}
	return nil
}

func writeExport(paths *pathutil.PathResolver, path string, write func(*os.File) error) error {
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

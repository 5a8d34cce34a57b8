package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/pigeonworks-llc/firefly-sync/pkg/ledger"
	"github.com/pigeonworks-llc/firefly-sync/pkg/matcher"
	"github.com/pigeonworks-llc/firefly-sync/pkg/similarity"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency is the number of operations applied in parallel.
	DefaultConcurrency = 4
	// DefaultOperationTimeout bounds each remote call of the apply phase.
	DefaultOperationTimeout = 30 * time.Second
	// DefaultLookbackDays is the sync window used when no start date is set.
	DefaultLookbackDays = 365
)

// Options configures an Engine.
type Options struct {
	// DateToleranceDays is the matcher date tolerance. Default 0.
	DateToleranceDays int
	// SimilarityThreshold is the minimum description score in [1,100].
	// Zero means the default of 80.
	SimilarityThreshold int
	// Similarity scores descriptions. Default similarity.Default.
	Similarity similarity.Func

	Concurrency      int
	OperationTimeout time.Duration

	// Since is the first date of the sync window. Local transactions are
	// read as of this date. Default: Until minus DefaultLookbackDays.
	Since civil.Date
	// Until is the last date of the sync window. Default: today.
	Until civil.Date

	// DryRun stops the run after planning.
	DryRun bool

	Reporters []Reporter
	Logger    *slog.Logger

	// Now returns the current time. Default time.Now.
	Now func() time.Time
}

// Engine reconciles a local source into a remote ledger.
type Engine struct {
	remote  RemoteLedger
	local   LocalSource
	matcher *matcher.Matcher
	opts    Options
	logger  *slog.Logger
}

// New creates an Engine.
func New(remote RemoteLedger, local LocalSource, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		remote: remote,
		local:  local,
		matcher: matcher.New(matcher.Options{
			DateToleranceDays: opts.DateToleranceDays,
			Threshold:         opts.SimilarityThreshold,
			Similarity:        opts.Similarity,
			Logger:            opts.Logger,
		}),
		opts:   opts,
		logger: opts.Logger,
	}
}

// Window returns the date range of the run. Remote transactions are listed
// over the window widened by the date tolerance.
func (e *Engine) Window() (since, until civil.Date) {
	until = e.opts.Until
	if until == (civil.Date{}) {
		until = civil.DateOf(e.opts.Now())
	}
	since = e.opts.Since
	if since == (civil.Date{}) {
		since = until.AddDays(-DefaultLookbackDays)
	}
	return since, until
}

// snapshot holds both sides of a run.
type snapshot struct {
	localAccounts      []ledger.Account
	localTransactions  []ledger.Transaction
	remoteAccounts     []ledger.Account
	remoteTransactions []ledger.Transaction
	rejected           []ledger.Rejected
}

// Run executes one sync pass. The returned error is non-nil only when the
// run was aborted; per-record failures are listed in the result.
func (e *Engine) Run(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{
		RunID:     uuid.NewString(),
		State:     PhaseFetching,
		DryRun:    e.opts.DryRun,
		StartedAt: e.opts.Now(),
	}
	logger := e.logger.With("run_id", result.RunID)
	since, until := e.Window()
	logger.Info("Starting sync", "since", since, "until", until, "dry_run", e.opts.DryRun)

	snap, err := e.fetch(ctx, since, until)
	if err != nil {
		result.State = PhaseAborted
		result.Err = err
		result.FinishedAt = e.opts.Now()
		logger.Error("Sync aborted", "error", err)
		e.report(ctx, result)
		return result, fmt.Errorf("sync aborted: %w", err)
	}
	logger.Info("Fetched records",
		"local_accounts", len(snap.localAccounts),
		"local_transactions", len(snap.localTransactions),
		"remote_accounts", len(snap.remoteAccounts),
		"remote_transactions", len(snap.remoteTransactions),
		"rejected", len(snap.rejected),
	)

	rec := &recorder{result: result}
	for _, r := range snap.rejected {
		rec.failed(Outcome{Op: OpValidate, Record: r.Record, Err: r.Err})
	}
	localAccounts, localTransactions := e.validate(snap, rec)

	result.State = PhaseMatching
	accounts := matcher.MatchAccounts(localAccounts, snap.remoteAccounts, logger)
	idx := newAccountIndex(accounts, snap.remoteAccounts)
	transactions := e.matcher.MatchTransactions(localTransactions, snap.remoteTransactions)
	result.RemoteOnlyAccounts = accounts.RemoteOnly
	result.RemoteOnlyTransactions = transactions.RemoteOnly
	logger.Info("Matched records",
		"matched_accounts", len(accounts.Pairs),
		"new_accounts", len(accounts.LocalOnly),
		"matched_transactions", len(transactions.Pairs),
		"new_transactions", len(transactions.LocalOnly),
		"remote_only_transactions", len(transactions.RemoteOnly),
	)

	result.State = PhasePlanning
	plan := buildPlan(accounts, transactions, idx)
	result.Plan = plan
	result.BalanceDrifts = balanceDrifts(accounts.Pairs)
	for _, d := range result.BalanceDrifts {
		logger.Warn("Account balance differs", "account", d.Account.Name,
			"local", d.Local.String(), "remote", d.Remote.String())
	}
	for _, t := range plan.Unchanged {
		rec.skipped(transactionOutcome(OpSkip, t, nil))
	}
	logger.Info("Planned operations",
		"create_account", plan.Count(OpCreateAccount),
		"create_transaction", plan.Count(OpCreateTransaction),
		"update_transaction", plan.Count(OpUpdateTransaction),
		"replace_transaction", plan.Count(OpReplaceTransaction),
		"unchanged", len(plan.Unchanged),
	)

	if e.opts.DryRun {
		for _, op := range slices.Concat(plan.Accounts, plan.Transactions) {
			logger.Info("[DRY RUN] Would apply", "operation", op.String())
		}
	} else {
		result.State = PhaseApplying
		e.apply(ctx, plan, rec, logger)
	}

	result.State = PhaseReported
	result.FinishedAt = e.opts.Now()
	logger.Info("Sync completed",
		"created", len(result.Created),
		"updated", len(result.Updated),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	e.report(ctx, result)
	return result, nil
}

// fetch reads both sides in parallel. Any failure cancels the other reads.
func (e *Engine) fetch(ctx context.Context, since, until civil.Date) (*snapshot, error) {
	snap := &snapshot{}
	var localAccountErrs, localTransactionErrs *ledger.RecordErrors
	tolerance := max(e.opts.DateToleranceDays, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := e.local.ListAccounts(gctx)
		if err = partial(err, &localAccountErrs); err != nil {
			return fmt.Errorf("failed to list local accounts: %w", err)
		}
		snap.localAccounts = accounts
		return nil
	})
	g.Go(func() error {
		transactions, err := e.local.ListTransactions(gctx, since)
		if err = partial(err, &localTransactionErrs); err != nil {
			return fmt.Errorf("failed to list local transactions: %w", err)
		}
		snap.localTransactions = transactions
		return nil
	})
	g.Go(func() error {
		accounts, err := e.remote.ListAccounts(gctx)
		if err != nil {
			return fmt.Errorf("failed to list remote accounts: %w", err)
		}
		snap.remoteAccounts = accounts
		return nil
	})
	g.Go(func() error {
		transactions, err := e.remote.ListTransactions(gctx, since.AddDays(-tolerance), until.AddDays(tolerance))
		if err != nil {
			return fmt.Errorf("failed to list remote transactions: %w", err)
		}
		snap.remoteTransactions = transactions
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if localAccountErrs != nil {
		snap.rejected = append(snap.rejected, localAccountErrs.Rejected...)
	}
	if localTransactionErrs != nil {
		snap.rejected = append(snap.rejected, localTransactionErrs.Rejected...)
	}
	return snap, nil
}

// partial clears err when it only lists rejected records, keeping them in
// *rejected.
func partial(err error, rejected **ledger.RecordErrors) error {
	if err == nil {
		return nil
	}
	var recErr *ledger.RecordErrors
	if errors.As(err, &recErr) {
		*rejected = recErr
		return nil
	}
	return err
}

// validate drops invalid local records, reporting each as a failure.
func (e *Engine) validate(snap *snapshot, rec *recorder) ([]ledger.Account, []ledger.Transaction) {
	accounts := make([]ledger.Account, 0, len(snap.localAccounts))
	for _, a := range snap.localAccounts {
		if err := a.Validate(); err != nil {
			e.logger.Warn("Skipping invalid account", "account", a.Name, "error", err)
			rec.failed(accountOutcome(OpValidate, a, err))
			continue
		}
		accounts = append(accounts, a)
	}

	transactions := make([]ledger.Transaction, 0, len(snap.localTransactions))
	for _, t := range snap.localTransactions {
		if err := t.Validate(); err != nil {
			e.logger.Warn("Skipping invalid transaction", "transaction", t.String(), "error", err)
			rec.failed(transactionOutcome(OpValidate, t, err))
			continue
		}
		transactions = append(transactions, t)
	}
	return accounts, transactions
}

// report runs even when ctx is cancelled so that interrupted runs are
// recorded.
func (e *Engine) report(ctx context.Context, result *SyncResult) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range e.opts.Reporters {
		if err := r.Report(ctx, result); err != nil {
			e.logger.Error("Reporter failed", "run_id", result.RunID, "error", err)
		}
	}
}

package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/webscan/internal/checker"
	"github.com/khanhnv2901/webscan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/webscan/internal/shared/errors"
)

// Summary describes one completed scan batch.
type Summary struct {
	Targets          int
	Good             int
	HighRisk         int
	Errors           int
	Duration         time.Duration
	PersistenceError error
}

// Summarize counts results per risk level.
func Summarize(results []scan.Result) Summary {
	s := Summary{Targets: len(results)}
	for _, res := range results {
		switch res.RiskLevel {
		case scan.RiskGood:
			s.Good++
		case scan.RiskHigh:
			s.HighRisk++
		default:
			s.Errors++
		}
	}
	return s
}

// CompleteFunc is called after every RunScan with the batch summary.
type CompleteFunc func(Summary)

// Orchestrator coordinates normalization, probing, classification and persistence.
// It is the single core shared by every presentation layer.
type Orchestrator struct {
	repo       scan.Repository
	prober     checker.Prober
	runner     *checker.Runner
	logger     *zap.Logger
	onComplete CompleteFunc
}

// NewOrchestrator creates a new scan orchestrator
func NewOrchestrator(
	repo scan.Repository,
	prober checker.Prober,
	runner *checker.Runner,
	logger *zap.Logger,
) *Orchestrator {
	if runner == nil {
		runner = &checker.Runner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		repo:   repo,
		prober: prober,
		runner: runner,
		logger: logger,
	}
}

// OnComplete registers a hook called after each scan batch.
func (o *Orchestrator) OnComplete(fn CompleteFunc) {
	o.onComplete = fn
}

// RunScan scans every target in raw (one per line) and appends the batch to history.
// A non-nil error always wraps ErrPersistence; the results are returned regardless.
func (o *Orchestrator) RunScan(ctx context.Context, raw string) ([]scan.Result, error) {
	return o.RunScanWithProgress(ctx, raw, nil)
}

// RunScanWithProgress is RunScan with a per-target callback invoked as results complete.
func (o *Orchestrator) RunScanWithProgress(ctx context.Context, raw string, onResult checker.ResultFunc) ([]scan.Result, error) {
	targets := checker.NormalizeTargets(raw)
	if len(targets) == 0 {
		return []scan.Result{}, nil
	}

	start := time.Now()
	o.logger.Info("scan started", zap.Int("targets", len(targets)), zap.String("prober", o.prober.Name()))

	results := o.runner.Run(ctx, targets, o.prober, onResult)

	// Only probes that reached an outcome are recorded. The append itself runs on a context
	// detached from cancellation so those outcomes are not lost.
	completed := scan.Completed(results)
	if skipped := len(results) - len(completed); skipped > 0 {
		o.logger.Warn("scan cancelled, unfinished targets not recorded",
			zap.Int("skipped", skipped), zap.Error(ctx.Err()))
	}

	var persistErr error
	if err := o.repo.Append(context.WithoutCancel(ctx), completed); err != nil {
		persistErr = fmt.Errorf("%w: %w", sharedErrors.ErrPersistence, err)
		o.logger.Error("failed to persist scan results", zap.Error(err), zap.Int("results", len(completed)))
	}

	summary := Summarize(results)
	summary.Duration = time.Since(start)
	summary.PersistenceError = persistErr

	o.logger.Info("scan finished",
		zap.Int("targets", summary.Targets),
		zap.Int("good", summary.Good),
		zap.Int("high_risk", summary.HighRisk),
		zap.Int("errors", summary.Errors),
		zap.Duration("duration", summary.Duration),
	)

	if o.onComplete != nil {
		o.onComplete(summary)
	}

	return results, persistErr
}

// Query returns history records for the given urls, oldest first.
func (o *Orchestrator) Query(ctx context.Context, urls []string) ([]scan.Record, error) {
	records, err := o.repo.Query(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return records, nil
}

// History returns the whole history, oldest first.
func (o *Orchestrator) History(ctx context.Context) ([]scan.Record, error) {
	records, err := o.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return records, nil
}

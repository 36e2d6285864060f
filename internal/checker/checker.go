package checker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/webscan/internal/domain/scan"
	consts "github.com/khanhnv2901/webscan/internal/shared/constants"
)

// Prober is the interface every probe implementation must satisfy
type Prober interface {
	// Probe observes a single target. Failures are reported in the returned signals.
	Probe(ctx context.Context, target scan.Target) scan.Signals

	// Name returns the name of this prober (e.g., "probe http")
	Name() string
}

// ResultFunc is called once per target as soon as its result is classified.
// Calls may arrive concurrently and in completion order.
type ResultFunc func(result scan.Result, duration time.Duration)

// Runner orchestrates probes with bounded concurrency and optional rate limiting
type Runner struct {
	Concurrency int // Maximum number of concurrent probes
	RateLimit   int // Probes started per second (global), 0 disables
	Logger      *zap.Logger
}

// Run probes and classifies every target. The returned slice is in input order
// regardless of completion order.
func (r *Runner) Run(ctx context.Context, targets []scan.Target, prober Prober, onResult ResultFunc) []scan.Result {
	results := make([]scan.Result, len(targets))
	if len(targets) == 0 {
		return results
	}

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = consts.DefaultConcurrency
	}

	var limiter *rate.Limiter
	if r.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.RateLimit), r.RateLimit)
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Worker pool
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(idx int, t scan.Target) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				_ = limiter.Wait(ctx)
			}

			start := time.Now()
			var signals scan.Signals
			var interrupted bool
			if err := ctx.Err(); err != nil {
				signals = scan.FailedSignals(err.Error())
				interrupted = true
			} else {
				signals = prober.Probe(ctx, t)
				// A failure observed after the scan was cancelled is the cancellation itself.
				interrupted = signals.Failed() && ctx.Err() != nil
			}
			result := scan.Result{
				URL:         t,
				CheckedAt:   start.UTC(),
				Signals:     signals,
				RiskLevel:   Classify(signals),
				Interrupted: interrupted,
			}
			duration := time.Since(start)

			logger.Debug("target classified",
				zap.String("prober", prober.Name()),
				zap.String("target", string(t)),
				zap.String("risk_level", string(result.RiskLevel)),
				zap.Duration("duration", duration),
			)

			// Each worker owns its index.
			results[idx] = result

			if onResult != nil {
				onResult(result, duration)
			}
		}(i, target)
	}

	wg.Wait()
	return results
}

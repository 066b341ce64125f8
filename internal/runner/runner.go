// Package runner drives one pipeline stage over a work-item list:
// skip what the ledger says is done, invoke the stage handler, persist
// the outcome durably before moving on.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/ledger"
)

// Handler processes a single patent number and classifies the outcome.
type Handler func(ctx context.Context, patentNo string) StageResult

// Options tunes retry escalation and inter-item pacing.
type Options struct {
	// MaxAttempts is the number of retryable failures (accumulated
	// across runs) after which an item escalates to failed_permanent.
	MaxAttempts int
	// ItemDelay is the base delay between items; mandatory pacing for
	// stages that hit an external capability.
	ItemDelay time.Duration
	// MaxDelay caps the escalated backoff after rate-limited results.
	MaxDelay time.Duration
}

func (o *Options) setDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.ItemDelay <= 0 {
		o.ItemDelay = 750 * time.Millisecond
	}
	if o.MaxDelay < o.ItemDelay {
		o.MaxDelay = 60 * time.Second
	}
}

// Summary is the per-run outcome tally.
type Summary struct {
	RunID     string
	Total     int
	Skipped   int
	Succeeded int
	Retryable int
	Permanent int
	Crashed   int
}

// Runner owns the ledger during a stage run; handlers never touch it.
type Runner struct {
	store *ledger.Store
	log   *slog.Logger

	// sleep is swapped out in tests
	sleep func(time.Duration)
}

func New(store *ledger.Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, log: logger, sleep: time.Sleep}
}

// Run iterates keys in input order, consulting and updating the ledger
// per item. Item-level failures never propagate; only a ledger write
// failure (or context cancellation between items) ends the run early.
func (r *Runner) Run(ctx context.Context, keys []string, stage constants.StageID, handler Handler, opts Options) (Summary, error) {
	opts.setDefaults()
	summary := Summary{RunID: uuid.NewString(), Total: len(keys)}
	log := r.log.With("stage", stage, "run_id", summary.RunID)

	ctx = common.WithRunID(common.WithStage(ctx, string(stage)), summary.RunID)

	recovered, err := r.store.RecoverInProgress(ctx, stage)
	if err != nil {
		return summary, err
	}
	log.Info("runner.start", "items", len(keys), "recovered", recovered, "max_attempts", opts.MaxAttempts)

	pacing := newPacing(opts)

	for i, patentNo := range keys {
		// operator stop is honored between items only, so no item is
		// ever abandoned mid-flight
		if err := ctx.Err(); err != nil {
			log.Warn("runner.cancelled", "processed", i, "remaining", len(keys)-i)
			return summary, err
		}

		item, err := r.store.Get(ctx, patentNo, stage)
		if err != nil {
			return summary, err
		}
		if item.ResumableSkip() {
			summary.Skipped++
			log.Debug("runner.item.skipped", "patent_no", patentNo, "status", item.Status)
			continue
		}
		if item == nil {
			item = &ledger.WorkItem{PatentNo: patentNo, Stage: stage, Status: constants.StatusPending}
		}

		item.Status = constants.StatusInProgress
		item.RunID = summary.RunID
		if err := r.store.Upsert(ctx, item); err != nil {
			return summary, err
		}

		res := r.invoke(ctx, handler, patentNo)
		if res.crashed {
			summary.Crashed++
		}

		switch res.kind {
		case kindSuccess:
			item.Status = constants.StatusSucceeded
			item.Artifact = res.artifact
			item.Degraded = res.degraded
			item.LastError = ""
			summary.Succeeded++
			log.Info("runner.item.succeeded", "patent_no", patentNo, "artifact", res.artifact, "degraded", res.degraded)

		case kindPermanent:
			item.Status = constants.StatusFailedPermanent
			item.LastError = reasonText(res.reason)
			item.NotFound = errors.Is(res.reason, common.ErrNotFound)
			summary.Permanent++
			log.Warn("runner.item.failed_permanent", "patent_no", patentNo, "reason", item.LastError)

		case kindRetryable:
			item.LastError = reasonText(res.reason)
			if res.rateLimited {
				// throttling is environmental, not evidence about the
				// item: it stays retryable and costs no attempt
				item.Status = constants.StatusFailedRetryable
				summary.Retryable++
				log.Warn("runner.item.rate_limited", "patent_no", patentNo, "attempts", item.Attempts)
				break
			}
			item.Attempts++
			if item.Attempts >= opts.MaxAttempts {
				item.Status = constants.StatusFailedPermanent
				summary.Permanent++
				log.Warn("runner.item.retries_exhausted",
					"patent_no", patentNo, "attempts", item.Attempts, "reason", item.LastError)
			} else {
				item.Status = constants.StatusFailedRetryable
				summary.Retryable++
				log.Warn("runner.item.failed_retryable",
					"patent_no", patentNo, "attempts", item.Attempts, "reason", item.LastError)
			}
		}

		if err := r.store.Upsert(ctx, item); err != nil {
			return summary, err
		}

		if i < len(keys)-1 {
			r.sleep(pacing.next(res.rateLimited))
		}
	}

	log.Info("runner.done",
		"succeeded", summary.Succeeded, "skipped", summary.Skipped,
		"retryable", summary.Retryable, "permanent", summary.Permanent,
		"crashed", summary.Crashed)
	return summary, nil
}

type invokeResult struct {
	StageResult
	crashed bool
}

// invoke shields the run from handler defects: a panic is logged and
// counted as one retryable failure, and the loop moves on.
func (r *Runner) invoke(ctx context.Context, handler Handler, patentNo string) (out invokeResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("runner.handler.crashed", "patent_no", patentNo, "panic", rec)
			out = invokeResult{
				StageResult: Retryable(fmt.Errorf("handler crash: %v", rec)),
				crashed:     true,
			}
		}
	}()
	return invokeResult{StageResult: handler(ctx, patentNo)}
}

func reasonText(err error) string {
	if err == nil {
		return "unspecified failure"
	}
	return err.Error()
}

// pacing produces the inter-item delay: jittered base delay normally,
// exponential growth while the external endpoint is throttling us.
type pacing struct {
	bo *backoff.ExponentialBackOff
}

func newPacing(opts Options) *pacing {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.ItemDelay
	bo.MaxInterval = opts.MaxDelay
	bo.Multiplier = 2.0
	bo.RandomizationFactor = 0.4
	bo.MaxElapsedTime = 0 // the run, not the clock, decides when to stop
	bo.Reset()
	return &pacing{bo: bo}
}

func (p *pacing) next(rateLimited bool) time.Duration {
	if !rateLimited {
		p.bo.Reset()
	}
	return p.bo.NextBackOff()
}

package runner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/ledger"
)

func newTestRunner(t *testing.T) (*Runner, *ledger.Store) {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	r := New(store, nil)
	r.sleep = func(time.Duration) {} // no pacing in tests
	return r, store
}

func status(t *testing.T, store *ledger.Store, patentNo string, stage constants.StageID) *ledger.WorkItem {
	t.Helper()
	item, err := store.Get(context.Background(), patentNo, stage)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item
}

func TestRunSuccess(t *testing.T) {
	r, store := newTestRunner(t)

	summary, err := r.Run(context.Background(), []string{"CN1790643A", "CN1770492A"}, constants.StageDownload,
		func(ctx context.Context, patentNo string) StageResult {
			return Success("pdfs/" + patentNo + ".pdf")
		}, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Succeeded)
	require.Zero(t, summary.Skipped)

	item := status(t, store, "CN1790643A", constants.StageDownload)
	require.Equal(t, constants.StatusSucceeded, item.Status)
	require.Equal(t, "pdfs/CN1790643A.pdf", item.Artifact)
	require.Equal(t, summary.RunID, item.RunID)
}

func TestResumptionIdempotence(t *testing.T) {
	r, store := newTestRunner(t)
	keys := []string{"CN1790643A", "CN1770492A"}

	invocations := 0
	handler := func(ctx context.Context, patentNo string) StageResult {
		invocations++
		return Success(patentNo)
	}

	_, err := r.Run(context.Background(), keys, constants.StageExtract, handler, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, invocations)

	// second run touches nothing and changes nothing
	before := status(t, store, "CN1790643A", constants.StageExtract).UpdatedAt
	summary, err := r.Run(context.Background(), keys, constants.StageExtract, handler, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, invocations)
	require.Equal(t, 2, summary.Skipped)
	require.Equal(t, before, status(t, store, "CN1790643A", constants.StageExtract).UpdatedAt)
}

func TestRetryEscalation(t *testing.T) {
	r, store := newTestRunner(t)
	keys := []string{"CN1790643A"}
	opts := Options{MaxAttempts: 3}

	attempts := 0
	failing := func(ctx context.Context, patentNo string) StageResult {
		attempts++
		return Retryable(errors.New("timeout"))
	}

	for run := 1; run <= 2; run++ {
		summary, err := r.Run(context.Background(), keys, constants.StageDownload, failing, opts)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Retryable)
		item := status(t, store, "CN1790643A", constants.StageDownload)
		require.Equal(t, constants.StatusFailedRetryable, item.Status)
		require.Equal(t, run, item.Attempts)
	}

	// third retryable failure escalates to permanent
	summary, err := r.Run(context.Background(), keys, constants.StageDownload, failing, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Permanent)
	item := status(t, store, "CN1790643A", constants.StageDownload)
	require.Equal(t, constants.StatusFailedPermanent, item.Status)
	require.Equal(t, 3, item.Attempts)

	// and is never attempted again
	summary, err = r.Run(context.Background(), keys, constants.StageDownload, failing, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Skipped)
	require.Equal(t, 3, attempts)
}

func TestPermanentFailureRecordsNotFound(t *testing.T) {
	r, store := newTestRunner(t)

	summary, err := r.Run(context.Background(), []string{"CN0000000X"}, constants.StageExtract,
		func(ctx context.Context, patentNo string) StageResult {
			return Permanent(common.WrapError(common.ErrNotFound, "search"))
		}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Permanent)

	item := status(t, store, "CN0000000X", constants.StageExtract)
	require.Equal(t, constants.StatusFailedPermanent, item.Status)
	require.True(t, item.NotFound)
	require.Zero(t, item.Attempts) // permanent failures bypass the attempt counter
}

func TestHandlerCrashIsContained(t *testing.T) {
	r, store := newTestRunner(t)

	summary, err := r.Run(context.Background(), []string{"CN1111111A", "CN2222222A"}, constants.StageRename,
		func(ctx context.Context, patentNo string) StageResult {
			if patentNo == "CN1111111A" {
				panic("defective handler")
			}
			return Success(patentNo)
		}, Options{})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Crashed)
	require.Equal(t, 1, summary.Succeeded)

	crashed := status(t, store, "CN1111111A", constants.StageRename)
	require.Equal(t, constants.StatusFailedRetryable, crashed.Status)
	require.Contains(t, crashed.LastError, "handler crash")
	require.Equal(t, constants.StatusSucceeded, status(t, store, "CN2222222A", constants.StageRename).Status)
}

func TestCrashedItemIsRetriedNotWedged(t *testing.T) {
	r, store := newTestRunner(t)
	ctx := context.Background()

	// simulate a process killed mid-item: the row is stuck in_progress
	require.NoError(t, store.Upsert(ctx, &ledger.WorkItem{
		PatentNo: "CN1790643A", Stage: constants.StageDownload, Status: constants.StatusInProgress,
	}))

	invoked := false
	summary, err := r.Run(ctx, []string{"CN1790643A"}, constants.StageDownload,
		func(ctx context.Context, patentNo string) StageResult {
			invoked = true
			return Success(patentNo)
		}, Options{})
	require.NoError(t, err)
	require.True(t, invoked)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, constants.StatusSucceeded, status(t, store, "CN1790643A", constants.StageDownload).Status)
}

func TestCancellationBetweenItems(t *testing.T) {
	r, store := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())

	var processed []string
	summary, err := r.Run(ctx, []string{"CN1111111A", "CN2222222A"}, constants.StageDownload,
		func(ctx context.Context, patentNo string) StageResult {
			processed = append(processed, patentNo)
			cancel() // operator stop arrives while the first item runs
			return Success(patentNo)
		}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"CN1111111A"}, processed)
	require.Equal(t, 1, summary.Succeeded)

	// the in-flight item completed and was persisted; nothing is left in_progress
	item := status(t, store, "CN1111111A", constants.StageDownload)
	require.Equal(t, constants.StatusSucceeded, item.Status)
	second, err2 := store.Get(context.Background(), "CN2222222A", constants.StageDownload)
	require.NoError(t, err2)
	require.Nil(t, second)
}

func TestRateLimitedStaysRetryableWithoutAttempt(t *testing.T) {
	r, store := newTestRunner(t)

	summary, err := r.Run(context.Background(), []string{"CN1111111A", "CN2222222A"}, constants.StageExtract,
		func(ctx context.Context, patentNo string) StageResult {
			return RateLimited(common.ErrRateLimited)
		}, Options{MaxAttempts: 5})
	require.NoError(t, err)
	require.Equal(t, 2, summary.Retryable)

	item := status(t, store, "CN1111111A", constants.StageExtract)
	require.Equal(t, constants.StatusFailedRetryable, item.Status)
	require.Zero(t, item.Attempts, "throttling must not consume an attempt")
}

func TestRateLimitedNeverEscalates(t *testing.T) {
	r, store := newTestRunner(t)
	keys := []string{"CN1790643A"}
	opts := Options{MaxAttempts: 3}

	throttled := func(ctx context.Context, patentNo string) StageResult {
		return RateLimited(common.ErrRateLimited)
	}
	for run := 0; run < opts.MaxAttempts+1; run++ {
		summary, err := r.Run(context.Background(), keys, constants.StageDownload, throttled, opts)
		require.NoError(t, err)
		require.Equal(t, 1, summary.Retryable)
		require.Zero(t, summary.Permanent)
	}

	item := status(t, store, "CN1790643A", constants.StageDownload)
	require.Equal(t, constants.StatusFailedRetryable, item.Status)
	require.Zero(t, item.Attempts)

	// a genuine transient failure afterwards still counts attempts
	summary, err := r.Run(context.Background(), keys, constants.StageDownload,
		func(ctx context.Context, patentNo string) StageResult {
			return Retryable(errors.New("timeout"))
		}, opts)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Retryable)
	require.Equal(t, 1, status(t, store, "CN1790643A", constants.StageDownload).Attempts)
}

func TestPacingEscalatesUnderRateLimit(t *testing.T) {
	p := newPacing(Options{ItemDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second, MaxAttempts: 3})

	base := p.next(false)
	require.Less(t, base, 200*time.Millisecond)

	// consecutive rate-limited items keep growing the delay
	p.next(true)
	escalated := p.next(true)
	require.Greater(t, escalated, base)

	// a clean item resets the schedule
	reset := p.next(false)
	require.Less(t, reset, escalated)
}

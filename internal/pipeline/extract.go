package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/record"
	"github.com/cxip/patent-pipeline/internal/runner"
)

// Searcher is the external search/detail capability. Search resolves a
// patent number to a navigable session token; Detail fetches the
// structured fields through that token. Both are suspension points that
// can fail independently.
type Searcher interface {
	Search(ctx context.Context, patentNo string) (token string, err error)
	Detail(ctx context.Context, patentNo, token string) (*record.Record, error)
}

// ExtractHandler drives search → token → detail and accumulates the
// results; the result set flushes itself on its configured cadence.
type ExtractHandler struct {
	search  Searcher
	results *record.ResultSet
	now     func() time.Time
	log     *slog.Logger
}

func NewExtractHandler(search Searcher, results *record.ResultSet, logger *slog.Logger) *ExtractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractHandler{search: search, results: results, now: time.Now, log: logger}
}

func (h *ExtractHandler) Handle(ctx context.Context, patentNo string) runner.StageResult {
	token, err := h.search.Search(ctx, patentNo)
	if res, failed := classifySearch(err, patentNo, "search"); failed {
		return res
	}

	rec, err := h.search.Detail(ctx, patentNo, token)
	if res, failed := classifySearch(err, patentNo, "detail"); failed {
		return res
	}

	rec.FetchedAt = h.now().UTC()
	if err := record.Validate(*rec); err != nil {
		// the database answered but with a record we refuse to keep;
		// retrying will not change its answer
		return runner.Permanent(fmt.Errorf("record rejected: %w", err))
	}
	if err := h.results.Put(*rec); err != nil {
		// flush failure: the record is merged in memory, retrying the
		// item on the next run re-fetches and re-flushes it
		return runner.Retryable(common.WrapError(err, "persist record"))
	}

	h.log.Info("extract.record_saved", "patent_no", patentNo, "examiner", rec.Examiner)
	return runner.Success(patentNo)
}

// classifySearch maps capability errors onto the stage-result taxonomy.
func classifySearch(err error, patentNo, op string) (runner.StageResult, bool) {
	switch {
	case err == nil:
		return runner.StageResult{}, false
	case errors.Is(err, common.ErrNotFound):
		return runner.Permanent(fmt.Errorf("%s %s: %w", op, patentNo, err)), true
	case errors.Is(err, common.ErrRateLimited):
		return runner.RateLimited(fmt.Errorf("%s %s: %w", op, patentNo, err)), true
	default:
		// token expiry and transport failures both heal on a later run
		return runner.Retryable(fmt.Errorf("%s %s: %w", op, patentNo, err)), true
	}
}

package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
)

// FailureLists splits a stage's terminal failures into the two
// human-inspectable buckets operators triage separately: identifiers the
// database simply does not have (notFound), and everything else (failed).
// Items still failed_retryable are excluded: they self-heal on the next
// run and are not the operator's problem yet.
func (s *Store) FailureLists(ctx context.Context, stage constants.StageID) (failed, notFound []WorkItem, err error) {
	items, err := s.ListByStatus(ctx, stage, constants.StatusFailedPermanent)
	if err != nil {
		return nil, nil, err
	}
	for _, item := range items {
		if item.NotFound {
			notFound = append(notFound, item)
		} else {
			failed = append(failed, item)
		}
	}
	return failed, notFound, nil
}

// WriteFailureLedgers writes <stage>_failed.txt and <stage>_notfound.txt
// under dir. Empty buckets remove any stale file from a previous run so
// the ledgers always reflect the current state.
func (s *Store) WriteFailureLedgers(ctx context.Context, stage constants.StageID, dir string) error {
	failed, notFound, err := s.FailureLists(ctx, stage)
	if err != nil {
		return err
	}

	failedPath := filepath.Join(dir, fmt.Sprintf("%s_failed.txt", stage))
	notFoundPath := filepath.Join(dir, fmt.Sprintf("%s_notfound.txt", stage))

	if err := writeList(failedPath, failed, true); err != nil {
		return common.WrapError(err, "write failed ledger")
	}
	if err := writeList(notFoundPath, notFound, false); err != nil {
		return common.WrapError(err, "write notfound ledger")
	}
	if len(failed) > 0 || len(notFound) > 0 {
		s.log.Info("ledger.failures_written",
			"stage", stage, "failed", len(failed), "not_found", len(notFound))
	}
	return nil
}

func writeList(path string, items []WorkItem, withReason bool) error {
	if len(items) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.PatentNo)
		if withReason && item.LastError != "" {
			b.WriteString("\t")
			b.WriteString(item.LastError)
		}
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

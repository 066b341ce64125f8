package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/ocr"
	"github.com/cxip/patent-pipeline/internal/runner"
)

// RenameHandler derives <patent_no>_<examiner>.pdf from the downloaded
// artifact. OCR unavailability never blocks the pipeline: the item
// succeeds with the patent-number-only name and a degraded flag.
type RenameHandler struct {
	rec ocr.Recognizer
	dir string
	log *slog.Logger
}

func NewRenameHandler(rec ocr.Recognizer, dir string, logger *slog.Logger) *RenameHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenameHandler{rec: rec, dir: dir, log: logger}
}

func (h *RenameHandler) Handle(ctx context.Context, patentNo string) runner.StageResult {
	src := filepath.Join(h.dir, constants.SanitizeFilename(patentNo)+constants.PDFExt)

	if _, err := os.Stat(src); err != nil {
		// a crash between a previous rename and its ledger write leaves
		// the renamed file with no source; treat it as done
		if renamed, ok := h.findRenamed(patentNo); ok {
			h.log.Debug("rename.already_renamed", "patent_no", patentNo, "path", renamed)
			return runner.Success(renamed)
		}
		return runner.Permanent(fmt.Errorf("source pdf missing: %w", common.ErrNotFound))
	}

	examiner, res := h.recognizeExaminer(ctx, src, patentNo)
	if res != nil {
		return *res
	}
	if examiner == "" {
		h.log.Info("rename.fallback", "patent_no", patentNo)
		return runner.SuccessDegraded(src)
	}

	target := filepath.Join(h.dir, constants.SanitizeFilename(patentNo+"_"+examiner)+constants.PDFExt)
	target, done, err := h.resolveConflict(src, target, patentNo, examiner)
	if err != nil {
		return runner.Retryable(err)
	}
	if done {
		return runner.Success(target)
	}
	if err := os.Rename(src, target); err != nil {
		return runner.Retryable(fmt.Errorf("rename pdf: %w", err))
	}
	h.log.Info("rename.done", "patent_no", patentNo, "examiner", examiner, "path", target)
	return runner.Success(target)
}

// recognizeExaminer runs OCR over the candidate regions. It returns the
// picked name, or "" for the degraded fallback; a non-nil StageResult
// short-circuits the handler (transient OCR failure).
func (h *RenameHandler) recognizeExaminer(ctx context.Context, src, patentNo string) (string, *runner.StageResult) {
	var candidates []string
	for _, region := range ocr.ExaminerRegions() {
		text, err := h.rec.Recognize(ctx, src, region)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrUnavailable), errors.Is(err, common.ErrLowConfidence):
			// degraded path, keep trying other regions
			continue
		default:
			res := runner.Retryable(fmt.Errorf("ocr %s: %w", patentNo, err))
			return "", &res
		}
		if name, ok := ocr.ExtractExaminer(text); ok {
			candidates = append(candidates, name)
		}
	}
	name, _ := ocr.PickExaminer(candidates)
	return name, nil
}

// resolveConflict returns a target path that is safe to rename onto.
// An existing file with identical content is the same artifact (the
// previous run crashed after copying), reported via done; a differing
// file gets a disambiguating suffix, never overwritten.
func (h *RenameHandler) resolveConflict(src, target, patentNo, examiner string) (finalTarget string, done bool, err error) {
	for counter := 2; ; counter++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			return target, false, nil
		}
		same, err := sameContent(src, target)
		if err != nil {
			return "", false, fmt.Errorf("compare pdf: %w", err)
		}
		if same {
			if err := os.Remove(src); err != nil {
				return "", false, fmt.Errorf("drop duplicate pdf: %w", err)
			}
			h.log.Debug("rename.duplicate_dropped", "patent_no", patentNo, "path", target)
			return target, true, nil
		}
		h.log.Warn("rename.conflict", "patent_no", patentNo, "path", target)
		target = filepath.Join(h.dir,
			constants.SanitizeFilename(fmt.Sprintf("%s_%s_%d", patentNo, examiner, counter))+constants.PDFExt)
	}
}

// findRenamed looks for an artifact already carrying this patent number.
func (h *RenameHandler) findRenamed(patentNo string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(h.dir, constants.SanitizeFilename(patentNo)+"_*"+constants.PDFExt))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func sameContent(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, err
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

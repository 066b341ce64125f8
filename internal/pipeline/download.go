// Package pipeline holds the stage handlers: thin adapters that call one
// external capability each and classify the outcome for the stage runner.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cxip/patent-pipeline/constants"
	"github.com/cxip/patent-pipeline/internal/common"
	"github.com/cxip/patent-pipeline/internal/runner"
)

// Fetcher is the external download capability: return the bytes of the
// first-office-action PDF for a patent number.
type Fetcher interface {
	Fetch(ctx context.Context, patentNo string) ([]byte, error)
}

// DownloadHandler writes fetched PDFs to <dir>/<patent_no>.pdf.
type DownloadHandler struct {
	fetcher  Fetcher
	dir      string
	minBytes int64
	log      *slog.Logger
}

// NewDownloadHandler builds the download stage handler. minKB guards
// against corrupt partial downloads; 0 selects the 100KB default
// observed for real office-action documents.
func NewDownloadHandler(fetcher Fetcher, dir string, minKB int, logger *slog.Logger) *DownloadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if minKB <= 0 {
		minKB = 100
	}
	return &DownloadHandler{
		fetcher:  fetcher,
		dir:      dir,
		minBytes: int64(minKB) * 1024,
		log:      logger,
	}
}

// Path returns the deterministic artifact path for a patent number.
func (h *DownloadHandler) Path(patentNo string) string {
	return filepath.Join(h.dir, constants.SanitizeFilename(patentNo)+constants.PDFExt)
}

func (h *DownloadHandler) Handle(ctx context.Context, patentNo string) runner.StageResult {
	target := h.Path(patentNo)

	// a previous run may have fetched this before the ledger write
	if ok, _ := h.validPDFAt(target); ok {
		h.log.Debug("download.already_present", "patent_no", patentNo, "path", target)
		return runner.Success(target)
	}

	data, err := h.fetcher.Fetch(ctx, patentNo)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrNotFound):
		return runner.Permanent(err)
	case errors.Is(err, common.ErrRateLimited):
		return runner.RateLimited(err)
	default:
		return runner.Retryable(fmt.Errorf("fetch %s: %w", patentNo, err))
	}

	if err := h.validatePDF(data); err != nil {
		// a corrupt body usually means the transfer was cut short
		return runner.Retryable(fmt.Errorf("fetched pdf invalid: %w", err))
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return runner.Retryable(fmt.Errorf("create pdf dir: %w", err))
	}
	tmp := target + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return runner.Retryable(fmt.Errorf("write pdf: %w", err))
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return runner.Retryable(fmt.Errorf("finalize pdf: %w", err))
	}

	h.log.Info("download.saved", "patent_no", patentNo, "path", target, "bytes", len(data))
	return runner.Success(target)
}

func (h *DownloadHandler) validatePDF(data []byte) error {
	if int64(len(data)) < h.minBytes {
		return fmt.Errorf("only %d bytes, need at least %d", len(data), h.minBytes)
	}
	if !strings.HasPrefix(string(data[:4]), constants.PDFHeader) {
		return fmt.Errorf("missing %s header", constants.PDFHeader)
	}
	return nil
}

func (h *DownloadHandler) validPDFAt(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil || info.Size() < h.minBytes {
		return false, err
	}
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		return false, err
	}
	return string(head) == constants.PDFHeader, nil
}

// Package ingest reads the patent-number work list the pipeline runs over.
package ingest

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cxip/patent-pipeline/internal/common"
)

const keyColumn = "patent_no"

// ReadPatentList reads a CSV work list. The header row is required and
// must contain a patent_no column; duplicate and malformed entries are
// dropped (duplicates are one logical work item). A missing file or a
// missing header is a setup error that must abort the process.
func ReadPatentList(path string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAppError("INPUT_ERROR", "cannot open patent list", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows; only the key column matters

	header, err := r.Read()
	if err != nil {
		return nil, common.NewAppError("INPUT_ERROR", "patent list has no header row", common.ErrInvalidInput)
	}
	keyIdx := -1
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), keyColumn) {
			keyIdx = i
			break
		}
	}
	if keyIdx == -1 {
		return nil, common.NewAppError("INPUT_ERROR", "patent list header is missing the patent_no column", common.ErrInvalidInput)
	}

	var (
		keys    []string
		seen    = make(map[string]struct{})
		skipped int
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, common.NewAppError("INPUT_ERROR", "malformed patent list row", err)
		}
		if keyIdx >= len(row) {
			skipped++
			continue
		}
		key := strings.TrimSpace(row[keyIdx])
		if key == "" {
			continue
		}
		if err := common.ValidatePatentNo(key); err != nil {
			logger.Warn("ingest.row_skipped", "patent_no", key, "err", err)
			skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, common.NewAppError("INPUT_ERROR", "patent list is empty", common.ErrInvalidInput)
	}
	logger.Info("ingest.list_loaded", "path", path, "items", len(keys), "skipped", skipped)
	return keys, nil
}

// Package export renders the extracted dataset as an XLSX workbook for
// operators who want the flat form in a spreadsheet.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cxip/patent-pipeline/internal/record"
)

const sheet = "Patents"

var headers = []string{
	"Patent No",
	"Type",
	"Application Date",
	"Application No",
	"Inventors",
	"First Applicant",
	"Examiner",
	"Abstract",
	"First Claim",
	"Fetched At",
}

// BuildXLSX returns an XLSX workbook (as bytes) for the given records.
func BuildXLSX(recs []record.Record, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIndex, _ := f.GetSheetIndex("Sheet1"); defIndex != -1 && defIndex != activeIndex {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.PatentNo)
		write(2, r.PatentType)
		write(3, r.ApplicationDate)
		write(4, r.ApplicationNo)
		write(5, r.Inventors)
		write(6, r.FirstApplicant)
		write(7, r.Examiner)
		// long text columns get truncated for readability; the full
		// values live in the JSON/CSV dataset
		write(8, truncate(r.Abstract, 400))
		write(9, truncate(r.FirstClaim, 400))
		if !r.FetchedAt.IsZero() {
			write(10, r.FetchedAt.UTC().Format("2006-01-02 15:04:05"))
		}

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 16) // patent no
	_ = f.SetColWidth(sheet, "B", "B", 12) // type
	_ = f.SetColWidth(sheet, "C", "D", 16) // dates / app no
	_ = f.SetColWidth(sheet, "E", "G", 24) // people
	_ = f.SetColWidth(sheet, "H", "I", 60) // abstract / claim
	_ = f.SetColWidth(sheet, "J", "J", 20) // fetched at

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteXLSX builds the workbook and writes it to path.
func WriteXLSX(path string, recs []record.Record, logger *slog.Logger) error {
	data, err := BuildXLSX(recs, logger)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	// cut on a rune boundary
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

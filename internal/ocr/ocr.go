// Package ocr adapts an external text-recognition capability for the
// rename stage: recognize a bounded region of a PDF page, then mine the
// examiner's name out of the recognized text.
package ocr

import "context"

// Region selects a fractional crop of one PDF page. Coordinates are
// fractions of the page size, origin top-left. Page is 1-based; -1
// means the last page.
type Region struct {
	Page   int
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// Recognizer is the external OCR capability. Errors are classified with
// the shared taxonomy: ErrUnavailable when the recognizer cannot run at
// all, ErrLowConfidence when it ran but produced nothing usable, and
// ErrTransport for transient execution failures.
type Recognizer interface {
	Recognize(ctx context.Context, pdfPath string, region Region) (string, error)
}

// ExaminerRegions lists where the examiner's name is expected, in
// priority order: bottom-left band of page 2, then the same band and
// the bottom-right band of the last page.
func ExaminerRegions() []Region {
	return []Region{
		{Page: 2, Left: 0, Top: 0.65, Right: 0.6, Bottom: 1},
		{Page: -1, Left: 0, Top: 0.65, Right: 0.6, Bottom: 1},
		{Page: -1, Left: 0.4, Top: 0.65, Right: 1, Bottom: 1},
	}
}

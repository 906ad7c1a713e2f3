// Package export renders ledger reports for download.
package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"budgethero/internal/core"
)

// Page geometry in points.
const (
	PageWidth  = 595.0
	PageHeight = 842.0
	Margin     = 40.0
	TitleY     = 60.0
	FirstRowY  = TitleY + 30
	RowStep    = 24.0
	MaxRowY    = 800.0
	FontSize   = 16.0
)

// Title is the heading printed on a ledger report.
func Title(periodLabel string) string {
	return "Ledger Report - " + periodLabel
}

// RowPositions returns the baseline of each of the first n rows that fit on
// the page. Rows past the bottom limit are dropped, not paginated.
func RowPositions(n int) []float64 {
	var ys []float64
	for y := FirstRowY; len(ys) < n && y <= MaxRowY; y += RowStep {
		ys = append(ys, y)
	}
	return ys
}

// Result reports how many rows made it onto the page.
type Result struct {
	Written   int
	Truncated int
}

// WriteLedgerPDF writes a single-page PDF with the title and as many rows
// as fit.
func WriteLedgerPDF(w io.Writer, title string, rows []core.LedgerRow) (Result, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", FontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.Text(Margin, TitleY, tr(title))
	ys := RowPositions(len(rows))
	for i, y := range ys {
		pdf.Text(Margin, y, tr(rows[i].String()))
	}

	if err := pdf.Output(w); err != nil {
		return Result{}, fmt.Errorf("write pdf: %w", err)
	}
	return Result{Written: len(ys), Truncated: len(rows) - len(ys)}, nil
}

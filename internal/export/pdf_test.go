package export

import (
	"bytes"
	"fmt"
	"testing"

	"budgethero/internal/core"
)

func TestRowPositions(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{30, 30},
		{31, 30},
		{500, 30},
	}
	for _, tt := range tests {
		ys := RowPositions(tt.n)
		if len(ys) != tt.want {
			t.Errorf("RowPositions(%d) has %d rows, want %d", tt.n, len(ys), tt.want)
		}
	}

	ys := RowPositions(30)
	if ys[0] != 90 || ys[1] != 114 || ys[len(ys)-1] != 786 {
		t.Errorf("unexpected positions: first=%v second=%v last=%v", ys[0], ys[1], ys[len(ys)-1])
	}
	for _, y := range ys {
		if y > MaxRowY {
			t.Fatalf("row at %v is below the limit", y)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := Title("This month"); got != "Ledger Report - This month" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteLedgerPDFTruncates(t *testing.T) {
	rows := []core.LedgerRow{core.LedgerHeader}
	for i := 0; i < 40; i++ {
		rows = append(rows, core.LedgerRow{
			Date: "2024-01-02 10:00", Type: "Expense", Name: fmt.Sprintf("item %d", i),
			Category: "Food", Amount: "R-1.00",
		})
	}

	var buf bytes.Buffer
	res, err := WriteLedgerPDF(&buf, Title("All time"), rows)
	if err != nil {
		t.Fatalf("WriteLedgerPDF: %v", err)
	}
	if res.Written != 30 || res.Truncated != 11 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestWriteLedgerPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	res, err := WriteLedgerPDF(&buf, Title("Today"), nil)
	if err != nil || res.Written != 0 || res.Truncated != 0 {
		t.Fatalf("res=%+v err=%v", res, err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a document")
	}
}

package google

import (
	"context"
	"strings"
	"testing"

	"budgethero/internal/core"
	"budgethero/internal/sheets"
)

func TestTabName(t *testing.T) {
	tests := []struct {
		prefix, user, want string
	}{
		{"Ledger ", "alice", "Ledger alice"},
		{"Ledger ", "a/b:c", "Ledger a_b_c"},
		{"", "it's[1]", "it_s_1_"},
		{"L-", strings.Repeat("x", 150), "L-" + strings.Repeat("x", 98)},
	}
	for _, tt := range tests {
		if got := tabName(tt.prefix, tt.user); got != tt.want {
			t.Errorf("tabName(%q, %q) = %q, want %q", tt.prefix, tt.user, got, tt.want)
		}
	}
}

func TestA1Range(t *testing.T) {
	if got := a1Range("Ledger bob", "A:E"); got != "'Ledger bob'!A:E" {
		t.Errorf("a1Range = %q", got)
	}
}

func TestLedgerValuesRoundTrip(t *testing.T) {
	rows := []core.LedgerRow{
		core.LedgerHeader,
		{Date: "-", Type: "Fixed Expense", Name: "Rent", Category: "-", Amount: "R800.00"},
		{Date: "2024-03-10 10:00", Type: "Expense", Name: "Groceries", Category: "Food", Amount: "R-60.00"},
	}
	values := ledgerValues(rows)
	if len(values) != 3 || len(values[1]) != 5 || values[2][4] != "R-60.00" {
		t.Fatalf("values = %v", values)
	}

	// The API hands cells back as interface values.
	back := make([][]interface{}, len(values))
	for i, v := range values {
		back[i] = v
	}
	if got := rowsFromValues(back); !sheets.SameRows(got, rows) {
		t.Errorf("rowsFromValues = %+v", got)
	}
}

func TestRowsFromValuesPadsShortRows(t *testing.T) {
	values := [][]interface{}{
		{"2024-03-10 10:00", "Income", "Gift", " "},
		{},
		{"-", "Fixed Expense", "Rent", "-", 800},
	}
	got := rowsFromValues(values)
	if len(got) != 2 {
		t.Fatalf("rows = %+v", got)
	}
	if got[0].Category != "" || got[0].Amount != "" {
		t.Errorf("short row not padded: %+v", got[0])
	}
	if got[1].Amount != "800" {
		t.Errorf("amount = %q", got[1].Amount)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", tabs: map[string]bool{}}
	if _, err := c.WriteLedger(context.Background(), "u1", nil); err == nil {
		t.Error("expected error without a service")
	}
	if _, err := c.ReadLedger(context.Background(), "u1"); err == nil {
		t.Error("expected error without a service")
	}
}

func TestNewRequiresSpreadsheetAndCredentials(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, Options{}); err == nil || !strings.Contains(err.Error(), "spreadsheet id") {
		t.Errorf("expected missing spreadsheet id, got %v", err)
	}
	if _, err := New(ctx, Options{SpreadsheetID: "id"}); err == nil || !strings.Contains(err.Error(), "credentials") {
		t.Errorf("expected missing credentials, got %v", err)
	}
	if _, err := New(ctx, Options{SpreadsheetID: "id", CredentialsFile: t.TempDir() + "/nope.json"}); err == nil {
		t.Error("expected error for missing credentials file")
	}
}

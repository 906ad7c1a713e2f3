// Package sheets defines the spreadsheet mirror of each user's ledger.
package sheets

import (
	"context"

	"budgethero/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerWriter replaces the mirrored ledger of one user with rows.
	LedgerWriter interface {
		WriteLedger(ctx context.Context, userID string, rows []core.LedgerRow) (rangeRef string, err error)
	}

	// LedgerReader returns the rows currently mirrored for a user, header
	// included. A user that was never mirrored has no rows.
	LedgerReader interface {
		ReadLedger(ctx context.Context, userID string) ([]core.LedgerRow, error)
	}

	LedgerMirror interface {
		LedgerWriter
		LedgerReader
	}
)

// SameRows reports whether two row sets are identical.
func SameRows(a, b []core.LedgerRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

package google

import (
	"fmt"
	"strings"

	"budgethero/internal/core"
)

// ledgerColumns is the A1 column span of a ledger row.
const ledgerColumns = "A:E"

// maxTabTitle is the longest sheet title the Sheets API accepts.
const maxTabTitle = 100

// tabName maps a user id to a sheet title. Characters the A1 notation cannot
// carry are replaced with '_'.
func tabName(prefix, userID string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, r := range userID {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\', '\'':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > maxTabTitle {
		name = name[:maxTabTitle]
	}
	return name
}

// a1Range quotes the tab title as required when it contains spaces or
// punctuation.
func a1Range(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", tab, cells)
}

func ledgerValues(rows []core.LedgerRow) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		cells := r.Cells()
		row := make([]any, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		out[i] = row
	}
	return out
}

// rowsFromValues converts a values matrix back into ledger rows. Trailing
// empty cells are omitted by the API, so short rows are padded.
func rowsFromValues(values [][]interface{}) []core.LedgerRow {
	out := make([]core.LedgerRow, 0, len(values))
	for _, v := range values {
		cols := toStrings(v)
		if len(cols) == 0 {
			continue
		}
		out = append(out, core.LedgerRow{
			Date:     safeGet(cols, 0),
			Type:     safeGet(cols, 1),
			Name:     safeGet(cols, 2),
			Category: safeGet(cols, 3),
			Amount:   safeGet(cols, 4),
		})
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

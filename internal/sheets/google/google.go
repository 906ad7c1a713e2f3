// Package google mirrors ledgers to a Google Sheets spreadsheet, one tab per
// user.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"budgethero/internal/core"
	ports "budgethero/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTabPrefix is prepended to the user id to name the user's tab.
const DefaultTabPrefix = "Ledger "

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string

	mu   sync.Mutex
	tabs map[string]bool // titles known to exist
}

var _ ports.LedgerMirror = (*Client)(nil)

type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	TabPrefix       string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	id := strings.TrimSpace(opts.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := loadCredentials(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	prefix := opts.TabPrefix
	if prefix == "" {
		prefix = DefaultTabPrefix
	}
	return &Client{svc: svc, spreadsheetID: id, tabPrefix: prefix, tabs: map[string]bool{}}, nil
}

// loadCredentials prefers inline JSON over a credentials file.
func loadCredentials(ctx context.Context, inline, file string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	file = strings.TrimSpace(file)
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteLedger clears the user's tab and writes rows from A1. Values are
// written RAW so dates and amounts keep their rendered text.
func (c *Client) WriteLedger(ctx context.Context, userID string, rows []core.LedgerRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	tab := tabName(c.tabPrefix, userID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return "", err
	}

	clearRange := a1Range(tab, ledgerColumns)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}
	if len(rows) == 0 {
		return clearRange, nil
	}

	ref := a1Range(tab, fmt.Sprintf("A1:E%d", len(rows)))
	vr := &gsheet.ValueRange{Values: ledgerValues(rows)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}
	return ref, nil
}

// ReadLedger returns the rows mirrored for the user. A missing tab yields no
// rows.
func (c *Client) ReadLedger(ctx context.Context, userID string) ([]core.LedgerRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	tab := tabName(c.tabPrefix, userID)
	exists, err := c.hasTab(ctx, tab)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	rng := a1Range(tab, ledgerColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return rowsFromValues(resp.Values), nil
}

func (c *Client) hasTab(ctx context.Context, tab string) (bool, error) {
	c.mu.Lock()
	known := c.tabs[tab]
	c.mu.Unlock()
	if known {
		return true, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.tabs[s.Properties.Title] = true
		}
	}
	return c.tabs[tab], nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	exists, err := c.hasTab(ctx, tab)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: tab}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", tab, err)
	}
	slog.InfoContext(ctx, "Created ledger sheet", "sheet", tab)

	c.mu.Lock()
	c.tabs[tab] = true
	c.mu.Unlock()
	return nil
}

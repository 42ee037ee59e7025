// Package google exports ledger rows to Google Sheets with a service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"sysfinance/internal/core"
	ports "sysfinance/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
}

var _ ports.RowExporter = (*Client)(nil)

// Config selects the target spreadsheet and credentials. CredentialsJSON
// wins over CredentialsFile. Setting OAuthTokenFile switches to user
// credentials created by oauth-init instead of a service account.
type Config struct {
	SpreadsheetID   string
	SheetBase       string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenFile  string
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var opts []goption.ClientOption
	auth := "service_account"
	if strings.TrimSpace(cfg.OAuthTokenFile) != "" {
		hc, err := oauthHTTPClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, goption.WithHTTPClient(hc))
		auth = "oauth"
	} else {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready",
		"component", "sheets",
		"spreadsheet_id", spreadsheetID,
		"sheet_base", cfg.SheetBase,
		"auth", auth)

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: cfg.SheetBase}, nil
}

func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportRows writes rows to the period tab, creating it when missing and
// clearing what a previous export left there.
func (c *Client) ExportRows(ctx context.Context, userID int64, year, month int, rows []core.ExportRow) (string, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := exportSheetName(c.sheetBase, userID, year, month)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	clearRange := fmt.Sprintf("'%s'!A:Z", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := exportValues(rows)
	rng := valuesRange(sheet, len(values), len(core.ExportHeader))
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Exported rows to Google Sheets",
		"component", "sheets",
		"user_id", userID,
		"year", year,
		"month", month,
		"rows", len(rows),
		"range", rng)
	return rng, nil
}

func (c *Client) ensureSheet(ctx context.Context, name string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	if hasSheet(titles, name) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", name, err)
	}
	slog.DebugContext(ctx, "Created export sheet", "component", "sheets", "sheet", name)
	return nil
}

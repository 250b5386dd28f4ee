package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pagos/internal/core"
	"pagos/internal/export"
	ports "pagos/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Pendientes"); the year is prefixed.
	pendingBase string
}

// Ensure interface conformance
var _ ports.PendingWriter = (*Client)(nil)

// Options configures the Sheets client.
type Options struct {
	SpreadsheetID      string
	PendingSheetName   string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(opts.PendingSheetName)
	if base == "" {
		base = "Pendientes"
	}

	svc, err := newSheetsService(ctx, opts.ServiceAccountJSON, opts.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		pendingBase:   base,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither is given.
func newSheetsService(ctx context.Context, serviceAccountJSON, serviceAccountFile string) (*gsheet.Service, error) {
	serviceAccountJSON = strings.TrimSpace(serviceAccountJSON)
	serviceAccountFile = strings.TrimSpace(serviceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WritePending clears the year's pending sheet and writes the month's list
// from A1 down.
func (c *Client) WritePending(ctx context.Context, year, month int, rows []export.Row, total decimal.Decimal) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if month < 1 || month > 12 {
		return "", fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}

	sheet := yearPrefixedName(c.pendingBase, year)
	clearRange := fmt.Sprintf("%s!A:E", sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := pendingValues(year, month, rows, total)
	ref := fmt.Sprintf("%s!A1:E%d", sheet, len(values))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, ref, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", ref, err)
	}

	slog.InfoContext(ctx, "Pending list written to sheet",
		"range", ref,
		"month", core.MonthKey(year, month),
		"items", len(rows))
	return ref, nil
}

// pendingValues lays out the sheet: a title row, a header row, one row per
// charge and a total row. Amounts are numbers so the sheet can sum them.
func pendingValues(year, month int, rows []export.Row, total decimal.Decimal) [][]any {
	values := make([][]any, 0, len(rows)+3)
	values = append(values,
		[]any{"Pendientes del mes " + core.MonthKey(year, month)},
		[]any{"Vence", "Importe", "Concepto", "Cuenta", "Categoría"},
	)
	for _, r := range rows {
		values = append(values, []any{r.Due.String(), r.Amount.InexactFloat64(), r.Name, r.Account, r.Category})
	}
	values = append(values, []any{"TOTAL PENDIENTE", total.InexactFloat64()})
	return values
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

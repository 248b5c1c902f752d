package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"finintel/internal/core"
	ports "finintel/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client reads the finance workbook tabs from a Google spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	names         ports.TableNames
}

// Ensure interface conformance
var _ ports.DatasetReader = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, names ports.TableNames) (*Client, error) {
	return NewForSpreadsheet(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), names)
}

// NewForSpreadsheet creates a client for the given spreadsheet using the
// service account credentials found in the environment.
func NewForSpreadsheet(ctx context.Context, spreadsheetID string, names ports.TableNames) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, names), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID string, names ports.TableNames) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, names: names.WithDefaults()}
}

// newSheetsService initializes a read-only Sheets Service using Service
// Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Cells are read unformatted so amounts and dates do not depend on the
// spreadsheet locale. Dates arrive as serial numbers.
const (
	valueRenderOption    = "UNFORMATTED_VALUE"
	dateTimeRenderOption = "SERIAL_NUMBER"
)

// readTable fetches every populated cell of a tab as trimmed strings.
func (c *Client) readTable(ctx context.Context, sheetName string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheetName).
		ValueRenderOption(valueRenderOption).
		DateTimeRenderOption(dateTimeRenderOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", sheetName, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	slog.DebugContext(ctx, "Read sheet", "sheet", sheetName, "rows", len(out))
	return out, nil
}

func (c *Client) ReadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := c.readTable(ctx, c.names.Transactions)
	if err != nil {
		return nil, err
	}
	return ports.ParseTransactions(rows)
}

func (c *Client) ReadCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := c.readTable(ctx, c.names.Categories)
	if err != nil {
		return nil, err
	}
	return ports.ParseCategories(rows)
}

func (c *Client) ReadMonthlyTargets(ctx context.Context) ([]core.BudgetTarget, error) {
	rows, err := c.readTable(ctx, c.names.Targets)
	if err != nil {
		return nil, err
	}
	return ports.ParseMonthlyTargets(rows)
}

func (c *Client) ReadMerchantRules(ctx context.Context) ([]core.MerchantRule, error) {
	rows, err := c.readTable(ctx, c.names.Rules)
	if err != nil {
		return nil, err
	}
	return ports.ParseMerchantRules(rows)
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

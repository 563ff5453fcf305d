package export

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"cv-screener/internal/screening"
)

const DefaultSheetTab = "Candidates"

type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	Tab             string
}

// SheetsExporter appends result rows to a spreadsheet tab.
type SheetsExporter struct {
	service       *sheets.Service
	spreadsheetID string
	tab           string
}

func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*SheetsExporter, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}, opts...)
	} else if len(opts) == 0 {
		return nil, fmt.Errorf("sheets: credentials file is required")
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: failed to create service: %w", err)
	}

	tab := cfg.Tab
	if tab == "" {
		tab = DefaultSheetTab
	}

	return &SheetsExporter{service: service, spreadsheetID: cfg.SpreadsheetID, tab: tab}, nil
}

// Export appends the header followed by one row per result.
func (e *SheetsExporter) Export(ctx context.Context, rows []screening.MatchResult) error {
	if len(rows) == 0 {
		return ErrNothingToExport
	}

	valueRange := &sheets.ValueRange{Values: SheetValues(rows)}
	_, err := e.service.Spreadsheets.Values.Append(e.spreadsheetID, e.tab+"!A1", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append to %s: %w", e.tab, err)
	}
	return nil
}

// SheetValues lays out rows the same way as the CSV export.
func SheetValues(rows []screening.MatchResult) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toCells(Header))
	for _, r := range rows {
		values = append(values, toCells(Row(r)))
	}
	return values
}

func toCells(fields []string) []interface{} {
	cells := make([]interface{}, len(fields))
	for i, f := range fields {
		cells[i] = f
	}
	return cells
}

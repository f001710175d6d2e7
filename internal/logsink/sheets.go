package logsink

import (
	"context"
	"fmt"
	"regexp"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Compile-time assertion.
var _ Sink = (*Sheets)(nil)

// spreadsheetKeyRe matches the key inside a full Google Sheets URL.
var spreadsheetKeyRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetKey extracts the spreadsheet key from a full Sheets URL, or
// returns the input unchanged when it is already a bare key.
func SpreadsheetKey(urlOrKey string) string {
	if m := spreadsheetKeyRe.FindStringSubmatch(urlOrKey); m != nil {
		return m[1]
	}
	return urlOrKey
}

// Sheets appends records to a Google Sheets spreadsheet.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewSheets creates a Sheets sink for the given spreadsheet URL or key.
// credentialsJSON is the path to a service-account key file; when empty,
// Application Default Credentials are used.
func NewSheets(ctx context.Context, urlOrKey, credentialsJSON string) (*Sheets, error) {
	if urlOrKey == "" {
		return nil, fmt.Errorf("logsink: spreadsheet URL or key must not be empty")
	}

	opts := []option.ClientOption{option.WithScopes(
		sheets.SpreadsheetsScope,
		sheets.DriveScope,
	)}
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsJSON))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("logsink: create sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: SpreadsheetKey(urlOrKey)}, nil
}

// Append implements [Sink] by appending one row after the last non-empty row.
func (s *Sheets) Append(ctx context.Context, rec Record) error {
	vr := &sheets.ValueRange{Values: [][]any{rec.Row()}}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, "A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("logsink: append row to %s: %w", s.spreadsheetID, err)
	}
	return nil
}

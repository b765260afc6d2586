// Package sheets appends completed leads as rows to a Google Sheet using a
// service-account credential.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/trilokanam-ux/trilokana-telegram-bot/leads"
	"github.com/trilokanam-ux/trilokana-telegram-bot/sink"
)

const (
	defaultRange = "Sheet1!A:F"
	rowTimeFmt   = "2006-01-02 15:04:05"
)

// Config holds Sheets access settings.
type Config struct {
	SpreadsheetID   string
	Range           string
	CredentialsJSON []byte
}

// Sink appends rows via the Sheets API. Row layout: timestamp, option,
// name, email, phone, query.
type Sink struct {
	svc           *gsheets.Service
	spreadsheetID string
	writeRange    string
}

// New authorizes against the Sheets API with the provided service-account
// JSON and returns a ready sink.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}
	if len(cfg.CredentialsJSON) == 0 {
		return nil, fmt.Errorf("sheets: service account credentials are required")
	}
	writeRange := cfg.Range
	if writeRange == "" {
		writeRange = defaultRange
	}

	svc, err := gsheets.NewService(ctx,
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(gsheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets: service init: %w", err)
	}

	return &Sink{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		writeRange:    writeRange,
	}, nil
}

// Append writes the record as a single row. The Sheets append call is
// atomic from the bot's perspective.
func (s *Sink) Append(ctx context.Context, rec leads.Record) error {
	row := []interface{}{
		rec.CapturedAt.Format(rowTimeFmt),
		rec.Option,
		rec.Name,
		rec.Email,
		rec.Phone,
		rec.Query,
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.writeRange, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return sink.E("sheets.append", err)
	}
	return nil
}

package google

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cashlog/internal/config"
	"cashlog/internal/core"
	"cashlog/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client appends transaction rows to a Google spreadsheet using a
// service account.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ sheets.TransactionAppender = (*Client)(nil)

// NewClient creates a Sheets client from the application configuration.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if !cfg.SheetsEnabled() {
		return nil, errors.New("sheets mirror is not configured")
	}

	var credentialsJSON []byte
	switch {
	case cfg.GoogleCredentialsJSON != "":
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing Google service account credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
	}, nil
}

// Append writes one transaction row: date, type, description, category,
// related party, amount. Returns the range reference of the written row.
func (c *Client) Append(ctx context.Context, tx *core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	row := []any{
		tx.Date.String(),
		string(tx.Type),
		tx.Description,
		tx.CategoryName,
		tx.RelatedPartyName,
		tx.Amount.String(),
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

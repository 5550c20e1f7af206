// Package sheets pushes exported rows into a Google Sheets spreadsheet. The
// spreadsheet must be shared with the service account ahead of time.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

var (
	// ErrPermissionDenied means the service account lacks access to the
	// spreadsheet; the fix is granting access, not retrying.
	ErrPermissionDenied = errors.New("spreadsheet access denied")
	// ErrQuotaExceeded means the Sheets API throttled or rejected the
	// write; the fix is retrying later.
	ErrQuotaExceeded = errors.New("spreadsheet quota exceeded")
)

// Config contains the spreadsheet target and credentials.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
}

// Service writes row batches into uniquely named worksheets.
type Service struct {
	api           *sheetsapi.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// New constructs a sheets service instance.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.SpreadsheetID == "" || cfg.CredentialsJSON == "" {
		return nil, fmt.Errorf("sheets spreadsheet id and credentials must be provided")
	}

	api, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Service{
		api:           api,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// Write places header and rows into the worksheet with the given title,
// clearing it first when it already exists and creating it otherwise.
// Returns the URL of the populated worksheet.
func (s *Service) Write(ctx context.Context, title string, header []string, rows [][]string) (string, error) {
	sheetID, err := s.ensureWorksheet(ctx, title)
	if err != nil {
		return "", err
	}

	values := make([][]interface{}, 0, len(rows)+1)
	headerRow := make([]interface{}, len(header))
	for i, cell := range header {
		headerRow[i] = cell
	}
	values = append(values, headerRow)

	for _, row := range rows {
		cells := make([]interface{}, len(row))
		for i, cell := range row {
			cells[i] = cell
		}
		values = append(values, cells)
	}

	_, err = s.api.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("'%s'!A1", title), &sheetsapi.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyErr(err)
	}

	s.logger.Info().Str("worksheet", title).Int("rows", len(rows)).Msg("rows exported to spreadsheet")

	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", s.spreadsheetID, sheetID), nil
}

func (s *Service) ensureWorksheet(ctx context.Context, title string) (int64, error) {
	spreadsheet, err := s.api.Spreadsheets.
		Get(s.spreadsheetID).
		Fields("sheets(properties(sheetId,title))").
		Context(ctx).
		Do()
	if err != nil {
		return 0, classifyErr(err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			// Reusing a worksheet means replacing its contents.
			_, err := s.api.Spreadsheets.Values.
				Clear(s.spreadsheetID, fmt.Sprintf("'%s'", title), &sheetsapi.ClearValuesRequest{}).
				Context(ctx).
				Do()
			if err != nil {
				return 0, classifyErr(err)
			}
			return sheet.Properties.SheetId, nil
		}
	}

	response, err := s.api.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{AddSheet: &sheetsapi.AddSheetRequest{Properties: &sheetsapi.SheetProperties{Title: title}}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return 0, classifyErr(err)
	}

	if len(response.Replies) > 0 && response.Replies[0].AddSheet != nil && response.Replies[0].AddSheet.Properties != nil {
		return response.Replies[0].AddSheet.Properties.SheetId, nil
	}

	return 0, fmt.Errorf("add sheet response missing worksheet properties")
}

// classifyErr keeps authorization failures distinct from quota failures;
// the corrective actions differ and must not be collapsed.
func classifyErr(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("sheets request failed: %w", err)
	}

	for _, item := range apiErr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "quotaExceeded" || item.Reason == "userRateLimitExceeded" {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
	}

	switch apiErr.Code {
	case 401, 403:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case 429:
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("sheets request failed: %w", err)
	}
}

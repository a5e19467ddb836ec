package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"csc-scraper/export"
	"csc-scraper/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer publishes processed records to Google Sheets
type Writer struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewWriter creates a new Google Sheets writer. Credentials come from the
// file at credentialsPath or, when that is empty, from GOOGLE_SHEETS_CREDENTIALS.
func NewWriter(ctx context.Context, spreadsheetID string, credentialsPath string) (*Writer, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID is empty")
	}

	var credsJSON []byte
	var err error

	if credentialsPath != "" {
		credsJSON, err = os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
	} else {
		credsEnv := strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_CREDENTIALS"))
		if credsEnv == "" {
			return nil, fmt.Errorf("credentials not found: GOOGLE_SHEETS_CREDENTIALS environment variable is empty or not set")
		}
		slog.Debug("reading credentials from GOOGLE_SHEETS_CREDENTIALS", "bytes", len(credsEnv))
		credsJSON = []byte(credsEnv)
	}

	if err := checkServiceAccount(credsJSON); err != nil {
		return nil, err
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		service:       service,
		spreadsheetID: spreadsheetID,
	}, nil
}

func checkServiceAccount(credsJSON []byte) error {
	var creds map[string]interface{}
	if err := json.Unmarshal(credsJSON, &creds); err != nil {
		return fmt.Errorf("invalid credentials JSON (check if JSON is properly formatted): %w", err)
	}
	if creds["type"] != "service_account" {
		return fmt.Errorf("credentials must be a service account JSON file (type: service_account), got type: %v", creds["type"])
	}
	return nil
}

// CreateSheetAndWriteRecords inserts a new sheet at index 0 and writes the records to it.
// source and filterInfo are optional; when set they go into a metadata row above the header.
// Returns the sheet name and sheet ID (gid) that was created.
func (w *Writer) CreateSheetAndWriteRecords(ctx context.Context, sheetName string, records []models.Record, source string, filterInfo string) (string, int64, error) {
	sheetName = sanitizeSheetName(sheetName)
	if len(sheetName) > 100 {
		sheetName = sheetName[:100]
	}

	batchUpdateRequest := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: sheetName,
						Index: 0,
						// Index 0 is the proto default and would otherwise be dropped
						ForceSendFields: []string{"Index"},
					},
				},
			},
		},
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(w.spreadsheetID, batchUpdateRequest).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	var sheetID int64
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	slog.Info("created sheet", "name", sheetName, "gid", sheetID)

	valueRange := &sheets.ValueRange{
		Values: buildValues(records, source, filterInfo),
	}
	_, err = w.service.Spreadsheets.Values.Update(w.spreadsheetID, fmt.Sprintf("'%s'!A1", sheetName), valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return "", 0, fmt.Errorf("failed to write to sheet: %w", err)
	}

	slog.Info("wrote records to sheet", "records", len(records), "name", sheetName)
	return sheetName, sheetID, nil
}

// SheetURL links straight to one tab of the spreadsheet
func (w *Writer) SheetURL(sheetID int64) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#gid=%d", w.spreadsheetID, sheetID)
}

// buildValues lays out the optional metadata row, the header and one row per record
func buildValues(records []models.Record, source string, filterInfo string) [][]interface{} {
	var values [][]interface{}

	if source != "" || filterInfo != "" {
		metadataRow := []interface{}{"Source", source}
		if filterInfo != "" {
			metadataRow = append(metadataRow, "Filters", filterInfo)
		}
		values = append(values, metadataRow)
	}

	values = append(values, toRow(export.RecordHeader()))
	for _, r := range records {
		values = append(values, toRow(export.RecordValues(r)))
	}
	return values
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// sanitizeSheetName removes invalid characters from sheet name
func sanitizeSheetName(name string) string {
	// Google Sheets sheet names cannot contain: / \ ? * [ ] :
	invalidChars := []string{"/", "\\", "?", "*", "[", "]", ":"}
	result := name
	for _, char := range invalidChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	result = strings.TrimSpace(result)
	if result == "" {
		result = "Sheet1"
	}
	return result
}

// ExtractSpreadsheetID extracts the spreadsheet ID from a Google Sheets URL.
// A bare ID is returned unchanged.
func ExtractSpreadsheetID(url string) string {
	// https://docs.google.com/spreadsheets/d/SPREADSHEET_ID/edit?usp=sharing
	parts := strings.Split(url, "/d/")
	if len(parts) < 2 {
		if strings.Contains(url, "/") {
			return ""
		}
		return strings.TrimSpace(url)
	}

	idPart := parts[1]
	if idx := strings.IndexAny(idPart, "/?#"); idx != -1 {
		idPart = idPart[:idx]
	}

	return strings.TrimSpace(idPart)
}

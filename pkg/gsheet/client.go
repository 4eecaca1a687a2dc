// Package gsheet publishes export grids into Google Sheets documents.
package gsheet

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	leadSheet        = "Leads"
	opportunitySheet = "Opportunities"

	// Upper bound on the auto-size request; custom-field columns can
	// push the lead sheet well past the fixed schema.
	autoResizeColumns = 50
)

// Publisher writes export grids into a spreadsheet document.
type Publisher interface {
	// Publish clears the Leads and Opportunities sheets and writes both
	// grids in one batched call. The clear+write pair is not
	// transactional: a failure between the two leaves the document
	// empty until the next run.
	Publish(ctx context.Context, spreadsheetID string, leadGrid, oppGrid [][]string) error
	// Create makes a new spreadsheet with the two export sheets and a
	// frozen header row, link-accessible to anyone with the URL.
	Create(ctx context.Context, title string) (string, error)
	// Share grants a user write access to the spreadsheet.
	Share(ctx context.Context, spreadsheetID, email string) error
}

type client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClient builds a Publisher authenticated with a service-account
// credentials file.
func NewClient(ctx context.Context, credentialsPath string) (Publisher, error) {
	sheetsSvc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	)
	if err != nil {
		return nil, eris.Wrap(err, "gsheet: create sheets service")
	}

	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, eris.Wrap(err, "gsheet: create drive service")
	}

	return &client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// NewClientWithServices wires pre-built services. Used by tests to point
// the client at a fake endpoint.
func NewClientWithServices(sheetsSvc *sheets.Service, driveSvc *drive.Service) Publisher {
	return &client{sheets: sheetsSvc, drive: driveSvc}
}

// URL returns the browser URL for a spreadsheet.
func URL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID + "/edit"
}

func (c *client) Publish(ctx context.Context, spreadsheetID string, leadGrid, oppGrid [][]string) error {
	props, err := c.ensureSheets(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	for _, rng := range []string{leadSheet + "!A:ZZ", opportunitySheet + "!A:ZZ"} {
		_, err := c.sheets.Spreadsheets.Values.Clear(spreadsheetID, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
		if err != nil {
			return eris.Wrapf(err, "gsheet: clear %s", rng)
		}
	}

	batch := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{Range: leadSheet + "!A1", Values: toValues(leadGrid)},
			{Range: opportunitySheet + "!A1", Values: toValues(oppGrid)},
		},
	}
	if _, err := c.sheets.Spreadsheets.Values.BatchUpdate(spreadsheetID, batch).Context(ctx).Do(); err != nil {
		return eris.Wrap(err, "gsheet: write grids")
	}

	// Everything past the write is cosmetic.
	if err := c.autoResize(ctx, spreadsheetID, props); err != nil {
		zap.L().Warn("gsheet: auto-resize failed", zap.Error(err))
	}
	if err := c.applyFormatting(ctx, spreadsheetID, props); err != nil {
		zap.L().Warn("gsheet: formatting failed", zap.Error(err))
	}

	return nil
}

func (c *client) Create(ctx context.Context, title string) (string, error) {
	doc := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{
				Title:          leadSheet,
				GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
			}},
			{Properties: &sheets.SheetProperties{
				Title:          opportunitySheet,
				GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
			}},
		},
	}

	created, err := c.sheets.Spreadsheets.Create(doc).Context(ctx).Do()
	if err != nil {
		return "", eris.Wrap(err, "gsheet: create spreadsheet")
	}
	if created.SpreadsheetId == "" {
		return "", eris.New("gsheet: create returned no spreadsheet id")
	}

	// Link access is cosmetic; the export still works without it.
	perm := &drive.Permission{Role: "writer", Type: "anyone", AllowFileDiscovery: false}
	if _, err := c.drive.Permissions.Create(created.SpreadsheetId, perm).Context(ctx).Do(); err != nil {
		zap.L().Warn("gsheet: link permission failed",
			zap.String("spreadsheet_id", created.SpreadsheetId),
			zap.Error(err),
		)
	}

	return created.SpreadsheetId, nil
}

func (c *client) Share(ctx context.Context, spreadsheetID, email string) error {
	perm := &drive.Permission{Role: "writer", Type: "user", EmailAddress: email}
	_, err := c.drive.Permissions.Create(spreadsheetID, perm).Fields("id").Context(ctx).Do()
	if err != nil {
		return eris.Wrapf(err, "gsheet: share with %s", email)
	}
	return nil
}

// ensureSheets returns the document's sheet properties, first adding the
// Leads and Opportunities sheets when the document lacks them.
func (c *client) ensureSheets(ctx context.Context, spreadsheetID string) ([]*sheets.SheetProperties, error) {
	doc, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrap(err, "gsheet: get sheet properties")
	}

	existing := make(map[string]bool)
	var props []*sheets.SheetProperties
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		existing[sh.Properties.Title] = true
		props = append(props, sh.Properties)
	}

	var reqs []*sheets.Request
	for _, title := range []string{leadSheet, opportunitySheet} {
		if existing[title] {
			continue
		}
		reqs = append(reqs, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title:          title,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
			},
		})
	}
	if len(reqs) == 0 {
		return props, nil
	}

	resp, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return nil, eris.Wrap(err, "gsheet: add missing sheets")
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			props = append(props, r.AddSheet.Properties)
		}
	}
	return props, nil
}

func (c *client) autoResize(ctx context.Context, spreadsheetID string, props []*sheets.SheetProperties) error {
	var reqs []*sheets.Request
	for _, p := range props {
		reqs = append(reqs, &sheets.Request{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    p.SheetId,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   autoResizeColumns,
				},
			},
		})
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "gsheet: auto-resize columns")
	}
	return nil
}

// applyFormatting bolds the header row on a dark background and bands
// every other data row.
func (c *client) applyFormatting(ctx context.Context, spreadsheetID string, props []*sheets.SheetProperties) error {
	var reqs []*sheets.Request
	for _, p := range props {
		reqs = append(reqs,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       p.SheetId,
						StartRowIndex: 0,
						EndRowIndex:   1,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							BackgroundColor: &sheets.Color{Red: 0.2, Green: 0.2, Blue: 0.2},
							TextFormat: &sheets.TextFormat{
								Bold:            true,
								ForegroundColor: &sheets.Color{Red: 1, Green: 1, Blue: 1},
							},
						},
					},
					Fields: "userEnteredFormat(backgroundColor,textFormat)",
				},
			},
			&sheets.Request{
				AddConditionalFormatRule: &sheets.AddConditionalFormatRuleRequest{
					Rule: &sheets.ConditionalFormatRule{
						Ranges: []*sheets.GridRange{{SheetId: p.SheetId, StartRowIndex: 1}},
						BooleanRule: &sheets.BooleanRule{
							Condition: &sheets.BooleanCondition{
								Type:   "CUSTOM_FORMULA",
								Values: []*sheets.ConditionValue{{UserEnteredValue: "=MOD(ROW(),2)=0"}},
							},
							Format: &sheets.CellFormat{
								BackgroundColor: &sheets.Color{Red: 0.95, Green: 0.95, Blue: 0.95},
							},
						},
					},
				},
			},
		)
	}
	if len(reqs) == 0 {
		return nil
	}

	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: reqs,
	}).Context(ctx).Do()
	if err != nil {
		return eris.Wrap(err, "gsheet: apply formatting")
	}
	return nil
}

func toValues(grid [][]string) [][]interface{} {
	values := make([][]interface{}, len(grid))
	for i, row := range grid {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}

package google

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/api/sheets/v4"
)

// DefaultReadRange covers every column a Toggl detailed export produces on
// the first tab.
const DefaultReadRange = "A:Z"

type SheetsClient struct {
	service *sheets.Service
}

func NewSheetsClient(service *sheets.Service) *SheetsClient {
	return &SheetsClient{service: service}
}

// ReadRows returns the formatted cell values of readRange as strings.
func (s *SheetsClient) ReadRows(ctx context.Context, spreadsheetID, readRange string) ([][]string, error) {
	if readRange == "" {
		readRange = DefaultReadRange
	}

	resp, err := s.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, errors.Wrapf(err, "unable to retrieve data from spreadsheet %s", spreadsheetID)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i := range row {
			cells[i] = getStringValue(row, i)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func getStringValue(row []interface{}, index int) string {
	if len(row) > index {
		switch v := row[index].(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

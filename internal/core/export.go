package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cfi/selfservice/internal/model"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportFilename returns the download name for an export taken at t.
func ExportFilename(t time.Time, format string) string {
	return fmt.Sprintf("access_requests_%s.%s", t.Format("02-01-2006-15-04"), format)
}

// ExportContentType returns the MIME type for format.
func ExportContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// WriteCSV writes a header row of attribute names followed by one row per
// request. Fields are quoted per RFC 4180.
func WriteCSV(w io.Writer, items []model.AccessRequest) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.AccessRequestColumns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range items {
		if err := cw.Write(items[i].Values()); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses a WriteCSV document back into requests. Columns are
// matched by header name.
func ReadCSV(r io.Reader) ([]model.AccessRequest, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	get := func(row []string, col string) string {
		if i, ok := index[col]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	out := make([]model.AccessRequest, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out = append(out, model.AccessRequest{
			ID:                get(row, model.AttrID),
			FirstName:         get(row, model.AttrFirstName),
			LastName:          get(row, model.AttrLastName),
			Email:             get(row, model.AttrEmail),
			Team:              get(row, model.AttrTeam),
			Environment:       get(row, model.AttrEnvironment),
			Status:            get(row, model.AttrStatus),
			Comments:          get(row, model.AttrComments),
			RequestDate:       get(row, model.AttrRequestDate),
			AdminName:         get(row, model.AttrAdminName),
			AdminResponseDate: get(row, model.AttrAdminResponseDate),
			AdminComments:     get(row, model.AttrAdminComments),
			NotificationAlert: get(row, model.AttrNotificationAlert),
		})
	}
	return out, nil
}

const xlsxSheet = "Access Requests"

// WriteXLSX writes the same columns as WriteCSV as a spreadsheet.
func WriteXLSX(w io.Writer, items []model.AccessRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(model.AccessRequestColumns))
	for i, c := range model.AccessRequestColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i := range items {
		values := items[i].Values()
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze xlsx header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

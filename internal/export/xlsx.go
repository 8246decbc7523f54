package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/i474232898/weather-bands-dashboard/internal/weather"
)

const sheetName = "Bands"

var headers = []string{
	"Date", "Actual min (C)", "Actual max (C)", "Average min (C)", "Average max (C)", "Record min (C)", "Record max (C)",
}

// BandsWorkbook renders bands as an XLSX workbook with one row per day.
// Absent values are left as empty cells.
func BandsWorkbook(title string, b weather.Bands) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:       title,
		Subject:     fmt.Sprintf("Daily temperature bands for station %s, %d", b.StationID, b.Year),
		Creator:     "weather-bands-dashboard",
		Description: fmt.Sprintf("%d days, %d with observations in %d", len(b.Rows), b.ActualDays, b.Year),
		Created:     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("failed to set document properties: %w", err)
	}

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range b.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			r.Date.String(),
			value(r.ActualMin), value(r.ActualMax),
			value(r.AvgMin), value(r.AvgMax),
			value(r.RecordMin), value(r.RecordMax),
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "A", "G", 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel to buffer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	row := make([]interface{}, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, "A1", last, style)
}

// value turns an absent temperature into an empty cell.
func value(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// internal/output/excel.go
package output

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

const (
	summarySheet  = "Summary"
	outcomesSheet = "Outcomes"
)

// ExcelWriter writes the report as a two-sheet workbook: a summary sheet
// with the run counters and an outcomes sheet with one row per product.
type ExcelWriter struct {
	filename string
}

// NewExcelWriter creates a new Excel report writer.
func NewExcelWriter(filename string) (*ExcelWriter, error) {
	if filename == "" {
		return nil, fmt.Errorf("excel output file is required")
	}
	return &ExcelWriter{filename: filename}, nil
}

// WriteReport builds and saves the workbook.
func (w *ExcelWriter) WriteReport(report *reconcile.Report) error {
	file := excelize.NewFile()
	defer file.Close()

	if err := w.writeSummary(file, report); err != nil {
		return err
	}
	if err := w.writeOutcomes(file, report); err != nil {
		return err
	}

	// Drop the default sheet left over from NewFile.
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	if err := file.SaveAs(w.filename); err != nil {
		return fmt.Errorf("failed to save Excel report: %w", err)
	}
	return nil
}

func (w *ExcelWriter) writeSummary(file *excelize.File, report *reconcile.Report) error {
	if _, err := file.NewSheet(summarySheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Run ID", report.RunID},
		{"Generated At", report.GeneratedAt.Format(time.RFC3339)},
		{"Checked", report.Summary.Checked},
		{"Needing Updates", report.Summary.Updated},
		{"No Changes", report.Summary.NoChanges},
		{"Not Found", report.Summary.NotFound},
		{"Errors", report.Summary.Errors},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(summarySheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (w *ExcelWriter) writeOutcomes(file *excelize.File, report *reconcile.Report) error {
	if _, err := file.NewSheet(outcomesSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := file.SetSheetRow(outcomesSheet, "A1", &header); err != nil {
		return err
	}

	for i, outcome := range report.Outcomes() {
		values := outcomeRow(report, outcome)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := file.SetSheetRow(outcomesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the workbook is built and saved in WriteReport.
func (w *ExcelWriter) Close() error {
	return nil
}

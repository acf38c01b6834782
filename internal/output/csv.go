// internal/output/csv.go
package output

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

// csvHeader defines the flattened outcome columns.
var csvHeader = []string{
	"run_id", "generated_at", "product_id", "sku", "name", "status",
	"found", "source_url", "proposed_price", "proposed_stock",
	"stock_inferred", "applied_to_storage", "error",
}

// CSVWriter writes the report as one row per outcome.
type CSVWriter struct {
	filename string
	file     *os.File
}

// NewCSVWriter creates a new CSV report writer.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &CSVWriter{
		filename: filename,
		file:     file,
	}, nil
}

// WriteReport flattens every outcome into a CSV row.
func (w *CSVWriter) WriteReport(report *reconcile.Report) error {
	writer := csv.NewWriter(w.file)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, outcome := range report.Outcomes() {
		if err := writer.Write(outcomeRow(report, outcome)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func outcomeRow(report *reconcile.Report, outcome reconcile.Outcome) []string {
	var price, stock string
	if outcome.Proposed != nil {
		if outcome.Proposed.Price != nil {
			price = outcome.Proposed.Price.String()
		}
		if outcome.Proposed.StockQuantity != nil {
			stock = strconv.Itoa(*outcome.Proposed.StockQuantity)
		}
	}

	return []string{
		report.RunID,
		report.GeneratedAt.Format(time.RFC3339),
		strconv.FormatInt(outcome.ProductID, 10),
		outcome.SKU,
		outcome.Name,
		outcome.Status(),
		strconv.FormatBool(outcome.Found),
		outcome.SourceURL,
		price,
		stock,
		strconv.FormatBool(outcome.StockInferred),
		strconv.FormatBool(outcome.AppliedToStorage),
		outcome.Error,
	}
}

// Close closes the underlying file.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

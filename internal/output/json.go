// internal/output/json.go
package output

import (
	"encoding/json"
	"os"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

// JSONWriter writes the report as an indented JSON document.
type JSONWriter struct {
	filename string
	file     *os.File
}

// NewJSONWriter creates a new JSON report writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	return &JSONWriter{
		filename: filename,
		file:     file,
	}, nil
}

// WriteReport serializes the report. Field names are part of the artifact
// contract; see the reconcile.Report struct tags.
func (w *JSONWriter) WriteReport(report *reconcile.Report) error {
	encoder := json.NewEncoder(w.file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

// Close flushes and closes the underlying file.
func (w *JSONWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

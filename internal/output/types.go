// internal/output/types.go

// Package output writes run reports to durable artifacts. The JSON artifact
// is the canonical audit trail; CSV and Excel serve spreadsheet consumers,
// and an optional MongoDB archiver keeps the run history queryable.
package output

import (
	"fmt"

	"github.com/valpere/CatalogSync/internal/reconcile"
)

// Format identifies a report artifact format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
)

// ParseFormat validates a configured format name.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatJSON, FormatCSV, FormatExcel:
		return Format(name), nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", name)
	}
}

// Writer persists one report to its artifact.
type Writer interface {
	WriteReport(report *reconcile.Report) error
	Close() error
}

// MongoOptions configures the optional report archive.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
}

// Config selects the artifact format and destination.
type Config struct {
	Format string
	File   string
	Mongo  MongoOptions
}

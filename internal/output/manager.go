// internal/output/manager.go
package output

import (
	"context"
	"fmt"

	"github.com/valpere/CatalogSync/internal/reconcile"
	"github.com/valpere/CatalogSync/internal/utils"
)

// Manager routes a finished report to the configured file sink and,
// when configured, archives it in MongoDB. Sink failures are independent:
// a Mongo outage does not lose the file artifact.
type Manager struct {
	config   Config
	writer   Writer
	archiver *MongoArchiver
	logger   utils.Logger
}

// NewManager validates the configuration and builds the sinks.
func NewManager(ctx context.Context, config Config) (*Manager, error) {
	format, err := ParseFormat(config.Format)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		config: config,
		logger: utils.NewComponentLogger("output"),
	}

	switch format {
	case FormatJSON:
		m.writer, err = NewJSONWriter(config.File)
	case FormatCSV:
		m.writer, err = NewCSVWriter(config.File)
	case FormatExcel:
		m.writer, err = NewExcelWriter(config.File)
	default:
		err = fmt.Errorf("unsupported output format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	if config.Mongo.URI != "" {
		m.archiver, err = NewMongoArchiver(ctx, config.Mongo)
		if err != nil {
			m.writer.Close()
			return nil, err
		}
	}

	return m, nil
}

// Publish writes the report to every configured sink. The file sink runs
// first; an archive failure is reported but does not mask a successful write.
func (m *Manager) Publish(ctx context.Context, report *reconcile.Report) error {
	if err := m.writer.WriteReport(report); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", m.config.File, err)
	}
	m.logger.WithField("file", m.config.File).Info("report written")

	if m.archiver != nil {
		if err := m.archiver.Archive(ctx, report); err != nil {
			return fmt.Errorf("report written to %s but archiving failed: %w", m.config.File, err)
		}
		m.logger.WithField("collection", m.config.Mongo.Collection).Info("report archived")
	}

	return nil
}

// Close releases all sink resources.
func (m *Manager) Close() error {
	var firstErr error
	if err := m.writer.Close(); err != nil {
		firstErr = err
	}
	if m.archiver != nil {
		if err := m.archiver.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// internal/report/manager.go
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/types"
)

var managerLogger = utils.NewComponentLogger("report")

// namedWriter pairs a writer with its sink name for error reporting.
type namedWriter struct {
	name   string
	writer Writer
}

// Manager fans run results out to every configured sink.
type Manager struct {
	writers []namedWriter
}

// NewManager builds a writer for each report setting. A failed sink
// constructor closes the sinks already opened and fails the whole manager.
func NewManager(settings []scenario.ReportSettings) (*Manager, error) {
	m := &Manager{}

	for i, s := range settings {
		writer, err := newWriter(s)
		if err != nil {
			m.Close()
			return nil, errors.NewReportError(s.Format, fmt.Errorf("reports[%d]: %w", i, err))
		}
		m.writers = append(m.writers, namedWriter{name: s.Format, writer: writer})
	}

	return m, nil
}

// newWriter maps one report setting onto its sink constructor
func newWriter(s scenario.ReportSettings) (Writer, error) {
	switch types.ReportFormat(s.Format) {
	case types.ReportJSON:
		return NewJSONWriter(s.Path), nil
	case types.ReportYAML:
		return NewYAMLWriter(s.Path), nil
	case types.ReportCSV:
		return NewCSVWriter(s.Path)
	case types.ReportExcel:
		return NewExcelWriter(s.Path)
	case types.ReportSQLite:
		return NewSQLiteWriter(s.Path, s.Table)
	case types.ReportPostgres:
		return NewPostgresWriter(s.DSN, s.Table)
	case types.ReportMySQL:
		return NewMySQLWriter(s.DSN, s.Table)
	case types.ReportMongoDB:
		return NewMongoWriter(s.DSN, s.Database, s.Collection, s.Timeout.ToDuration())
	case types.ReportWebhook:
		return NewWebhookWriter(s.URL, s.Headers, s.AuthToken, s.Timeout.ToDuration())
	default:
		return nil, fmt.Errorf("unsupported report format: %s", s.Format)
	}
}

// Add registers an already-built writer under the given sink name.
func (m *Manager) Add(name string, writer Writer) {
	m.writers = append(m.writers, namedWriter{name: name, writer: writer})
}

// Targets lists the configured sink names
func (m *Manager) Targets() []string {
	names := make([]string, 0, len(m.writers))
	for _, nw := range m.writers {
		names = append(names, nw.name)
	}
	return names
}

// Pingers returns a reachability probe per sink that supports one,
// keyed by sink name. Used to register report health checks.
func (m *Manager) Pingers() map[string]func(context.Context) error {
	pingers := make(map[string]func(context.Context) error)
	for _, nw := range m.writers {
		if p, ok := nw.writer.(interface{ Ping(context.Context) error }); ok {
			pingers[nw.name] = p.Ping
		}
	}
	return pingers
}

// Write delivers the result to every sink. Failing sinks are logged and
// collected; the remaining sinks still receive the result.
func (m *Manager) Write(ctx context.Context, result *types.RunResult) error {
	var failedSinks []string
	var failures []string

	for _, nw := range m.writers {
		if err := nw.writer.Write(ctx, result); err != nil {
			managerLogger.Errorf("report sink %s failed: %v", nw.name, err)
			failedSinks = append(failedSinks, nw.name)
			failures = append(failures, fmt.Sprintf("%s: %v", nw.name, err))
		}
	}

	if len(failures) > 0 {
		return errors.NewReportError(strings.Join(failedSinks, ","),
			fmt.Errorf("%d of %d report sinks failed: %s", len(failures), len(m.writers), strings.Join(failures, "; ")))
	}
	return nil
}

// Close closes every sink and reports the first error encountered
func (m *Manager) Close() error {
	var firstErr error
	for _, nw := range m.writers {
		if err := nw.writer.Close(); err != nil {
			managerLogger.Errorf("failed to close report sink %s: %v", nw.name, err)
			if firstErr == nil {
				firstErr = errors.NewReportError(nw.name, fmt.Errorf("close: %w", err))
			}
		}
	}
	m.writers = nil
	return firstErr
}

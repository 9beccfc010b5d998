package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/academic-records/pkg/errors"
	"github.com/noah-isme/academic-records/pkg/export"
)

// ReportFormat names a rendered export format.
type ReportFormat string

// Supported formats.
const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ParseReportFormat accepts "csv" or "pdf" in any case.
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(raw))); f {
	case ReportFormatCSV, ReportFormatPDF:
		return f, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
	Path(filename string) string
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// Exportable is any report that can be flattened into a dataset.
type Exportable interface {
	Dataset() export.Dataset
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Path         string
	Format       ReportFormat
	Size         int
}

// ExportService renders reports and stores them in the reports directory.
type ExportService struct {
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	metrics operationRecorder
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(storage fileStorage, csv csvRenderer, pdf pdfRenderer, metrics operationRecorder, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{storage: storage, csv: csv, pdf: pdf, metrics: metrics, logger: logger}
}

// Export renders report in the requested format and saves it.
func (s *ExportService) Export(report Exportable, format ReportFormat) (result *ExportResult, err error) {
	defer func() { s.metrics.RecordOperation("export_"+string(format), err) }()
	if report == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "report required")
	}
	dataset := report.Dataset()

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "render report")
	}

	relPath, err := s.storage.Save(buildFilename(dataset.Title, format), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "store report")
	}
	s.logger.Info("report exported", zap.String("path", relPath), zap.String("format", string(format)), zap.Int("bytes", len(payload)))
	return &ExportResult{RelativePath: relPath, Path: s.storage.Path(relPath), Format: format, Size: len(payload)}, nil
}

// Cleanup removes exports older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "retention must be positive")
	}
	deleted, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.ExitCode, "cleanup exports")
	}
	s.logger.Info("exports pruned", zap.Int("deleted", len(deleted)), zap.Duration("older_than", ttl))
	return deleted, nil
}

func buildFilename(title string, format ReportFormat) string {
	return fmt.Sprintf("%s_%s.%s", sanitizeFilename(title), uuid.NewString(), format)
}

func sanitizeFilename(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "report"
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	result := strings.Trim(b.String(), "_")
	if len(result) > 80 {
		result = result[:80]
	}
	if result == "" {
		return "report"
	}
	return result
}

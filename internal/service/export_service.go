package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/padmarajkore/sahayak-store/internal/models"
	appErrors "github.com/padmarajkore/sahayak-store/pkg/errors"
	"github.com/padmarajkore/sahayak-store/pkg/export"
)

// ExportFormat selects the rendered register representation.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries the rendered register with transport metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders attendance registers for reporting consumers.
type ExportService struct {
	attendance attendanceReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	metrics    storeObserver
	logger     *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(attendance attendanceReader, metrics storeObserver, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		attendance: attendance,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		logger:     logger,
	}
}

// ClassRegister renders a subject's attendance over a date range as CSV or
// PDF. The register lists one row per stored record, in query order.
func (s *ExportService) ClassRegister(ctx context.Context, subject string, rng models.DateRange, format ExportFormat) (*ExportResult, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	start := time.Now()
	records, err := s.attendance.ByClass(ctx, subject, rng)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveStoreOperation("attendance_by_class", time.Since(start))
	}

	table := export.Table{
		Headers: []string{"Date", "Student ID", "Student Name", "Status", "Marked By", "Marked At"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, record := range records {
		table.Rows = append(table.Rows, []string{
			record.Date,
			record.StudentID,
			record.StudentName,
			string(record.Status),
			record.MarkedBy,
			record.MarkedAt.UTC().Format(time.RFC3339),
		})
	}

	switch format {
	case FormatCSV, "":
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, fmt.Errorf("render attendance register csv: %w", err)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("attendance-%s.csv", sanitizeFilename(subject)),
		}, nil
	case FormatPDF:
		title := fmt.Sprintf("Attendance Register - %s", subject)
		content, err := s.pdf.Render(table, title)
		if err != nil {
			return nil, fmt.Errorf("render attendance register pdf: %w", err)
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("attendance-%s.pdf", sanitizeFilename(subject)),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func sanitizeFilename(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, raw)
	return strings.ToLower(strings.Trim(cleaned, "-"))
}

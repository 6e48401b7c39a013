package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
	"github.com/campwerk/nightwatch-api/pkg/export"
)

type exportReportReader interface {
	FindByID(ctx context.Context, id int64) (*models.Report, error)
	ListStudentRows(ctx context.Context, reportID int64) ([]models.StudentReportRow, error)
	ListByCourse(ctx context.Context, courseID int64, status *models.ReportStatus, from, to *time.Time, page, pageSize int) ([]models.Report, int, error)
}

type exportCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type exportArchive interface {
	Save(name string, data []byte) (string, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered bytes plus HTTP metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders report data into CSV and PDF downloads. Rendered
// files are also archived on disk when an archive is configured; archiving is
// best effort and never fails the download.
type ExportService struct {
	reports exportReportReader
	courses exportCourseReader
	archive exportArchive
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService wires the export service. A nil archive disables the
// on-disk copy.
func NewExportService(reports exportReportReader, courses exportCourseReader, archive exportArchive, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports: reports,
		courses: courses,
		archive: archive,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// ExportReport renders one report with its attendance rows.
func (s *ExportService) ExportReport(ctx context.Context, reportID int64, format ExportFormat) (*ExportResult, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOrInternal(err, "report not found")
	}
	rows, err := s.reports.ListStudentRows(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list report rows")
	}

	data := export.Dataset{Headers: []string{"Student", "Status", "Comment"}}
	for _, row := range rows {
		comment := ""
		if row.Comment != nil {
			comment = *row.Comment
		}
		data.Rows = append(data.Rows, map[string]string{
			"Student": row.StudentName,
			"Status":  string(row.Status),
			"Comment": comment,
		})
	}

	name := fmt.Sprintf("report_%d_%s", report.ID, report.ReportDate.Format("2006-01-02"))
	title := fmt.Sprintf("%s report", strings.ToLower(string(report.Type)))
	subtitle := fmt.Sprintf("Night of %s, status %s", report.ReportDate.Format("2006-01-02"), report.Status)
	return s.render(data, format, name, title, subtitle)
}

// ExportCourseReports renders a course's report index for a date range.
func (s *ExportService) ExportCourseReports(ctx context.Context, courseID int64, from, to time.Time, format ExportFormat) (*ExportResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found")
	}
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "date_to precedes date_from")
	}

	reports, _, err := s.reports.ListByCourse(ctx, courseID, nil, &from, &to, 1, 10000)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}

	data := export.Dataset{Headers: []string{"Date", "Type", "Status", "Submitted", "Reviewed"}}
	for _, r := range reports {
		submitted, reviewed := "", ""
		if r.SubmittedAt != nil {
			submitted = r.SubmittedAt.Format("2006-01-02 15:04")
		}
		if r.ReviewedAt != nil {
			reviewed = r.ReviewedAt.Format("2006-01-02 15:04")
		}
		data.Rows = append(data.Rows, map[string]string{
			"Date":      r.ReportDate.Format("2006-01-02"),
			"Type":      string(r.Type),
			"Status":    string(r.Status),
			"Submitted": submitted,
			"Reviewed":  reviewed,
		})
	}

	name := fmt.Sprintf("course_%d_reports_%s_%s", course.ID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	subtitle := fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	return s.render(data, format, name, course.Name+" night reports", subtitle)
}

func (s *ExportService) render(data export.Dataset, format ExportFormat, name, title, subtitle string) (*ExportResult, error) {
	var result *ExportResult
	switch format {
	case FormatCSV:
		body, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		result = &ExportResult{FileName: name + ".csv", ContentType: "text/csv", Data: body}
	case FormatPDF:
		body, err := s.pdf.Render(data, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		result = &ExportResult{FileName: name + ".pdf", ContentType: "application/pdf", Data: body}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	if s.archive != nil {
		if _, err := s.archive.Save(result.FileName, result.Data); err != nil {
			s.logger.Warn("failed to archive export", zap.String("file", result.FileName), zap.Error(err))
		}
	}
	return result, nil
}

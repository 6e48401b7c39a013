package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campwerk/nightwatch-api/internal/models"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type stubExportReportReader struct {
	report *models.Report
	rows   []models.StudentReportRow
	list   []models.Report
}

func (s *stubExportReportReader) FindByID(_ context.Context, _ int64) (*models.Report, error) {
	return s.report, nil
}

func (s *stubExportReportReader) ListStudentRows(_ context.Context, _ int64) ([]models.StudentReportRow, error) {
	return s.rows, nil
}

func (s *stubExportReportReader) ListByCourse(_ context.Context, _ int64, _ *models.ReportStatus, _, _ *time.Time, _, _ int) ([]models.Report, int, error) {
	return s.list, len(s.list), nil
}

type stubExportCourseReader struct {
	course *models.Course
}

func (s *stubExportCourseReader) FindByID(_ context.Context, _ int64) (*models.Course, error) {
	return s.course, nil
}

type stubArchive struct {
	saved map[string][]byte
	err   error
}

func (s *stubArchive) Save(name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[name] = data
	return name, nil
}

func exportFixtureReport() *stubExportReportReader {
	comment := "late return"
	return &stubExportReportReader{
		report: &models.Report{
			ID:         3,
			Type:       models.ReportTypeAttendance,
			Status:     models.ReportStatusSubmitted,
			ReportDate: date("2026-07-01"),
		},
		rows: []models.StudentReportRow{
			{StudentName: "Jo Miles", StudentReport: models.StudentReport{Status: models.StudentReportPresent}},
			{StudentName: "Pat Quinn", StudentReport: models.StudentReport{Status: models.StudentReportAbsent, Comment: &comment}},
		},
	}
}

func TestExportReportCSVArchivesRenderedFile(t *testing.T) {
	archive := &stubArchive{}
	svc := NewExportService(exportFixtureReport(), nil, archive, nil)

	result, err := svc.ExportReport(context.Background(), 3, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "report_3_2026-07-01.csv", result.FileName)
	assert.Equal(t, "text/csv", result.ContentType)

	body := string(result.Data)
	assert.True(t, strings.HasPrefix(body, "Student,Status,Comment\n"))
	assert.Contains(t, body, "Jo Miles,PRESENT,")
	assert.Contains(t, body, "Pat Quinn,ABSENT,late return")

	// The download body is also kept on disk.
	assert.Equal(t, result.Data, archive.saved[result.FileName])
}

func TestExportReportArchiveFailureDoesNotFailDownload(t *testing.T) {
	archive := &stubArchive{err: errors.New("disk full")}
	svc := NewExportService(exportFixtureReport(), nil, archive, nil)

	result, err := svc.ExportReport(context.Background(), 3, FormatCSV)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
}

func TestExportReportWithoutArchive(t *testing.T) {
	svc := NewExportService(exportFixtureReport(), nil, nil, nil)

	result, err := svc.ExportReport(context.Background(), 3, FormatCSV)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Data)
}

func TestExportReportUnsupportedFormat(t *testing.T) {
	svc := NewExportService(exportFixtureReport(), nil, nil, nil)

	_, err := svc.ExportReport(context.Background(), 3, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportCourseReportsRejectsInvertedRange(t *testing.T) {
	courses := &stubExportCourseReader{course: &models.Course{ID: 1, Name: "Summer Camp"}}
	svc := NewExportService(&stubExportReportReader{}, courses, nil, nil)

	_, err := svc.ExportCourseReports(context.Background(), 1, date("2026-07-14"), date("2026-07-01"), FormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErrors.FromError(err).Code)
}

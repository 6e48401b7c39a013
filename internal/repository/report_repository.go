package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// ReportRepository handles nightly reports and their per-student rows.
// Mutating methods accept an sqlx.ExtContext so the state machine can commit
// a transition and its side effects atomically.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, course_id, group_id, room_id, shift_id, report_date, type, status, comment,
submitted_by, submitted_at, reviewed_by, reviewed_at, rejected_at, created_at, updated_at`

// Create inserts a report in DRAFT state.
func (r *ReportRepository) Create(ctx context.Context, exec sqlx.ExtContext, report *models.Report) (*models.Report, error) {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	query := `INSERT INTO reports (course_id, group_id, room_id, shift_id, report_date, type, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING ` + reportColumns
	var stored models.Report
	if err := sqlx.GetContext(ctx, exec, &stored, query,
		report.CourseID, report.GroupID, report.RoomID, report.ShiftID,
		report.ReportDate, report.Type, models.ReportStatusDraft, now); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return &stored, nil
}

// InsertStudentReports freezes the student list onto the report, one PENDING
// row per student.
func (r *ReportRepository) InsertStudentReports(ctx context.Context, exec sqlx.ExtContext, reportID int64, studentIDs []int64) error {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	query := `INSERT INTO student_reports (report_id, student_id, status, updated_at) VALUES ($1, $2, $3, $4)`
	for _, studentID := range studentIDs {
		if _, err := exec.ExecContext(ctx, query, reportID, studentID, models.StudentReportPending, now); err != nil {
			return fmt.Errorf("insert student report: %w", err)
		}
	}
	return nil
}

// FindByID returns a report by ID.
func (r *ReportRepository) FindByID(ctx context.Context, id int64) (*models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE id = $1"
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, fmt.Errorf("find report: %w", err)
	}
	return &report, nil
}

// FindByShiftAndType returns the report for a shift of a given type, or nil.
func (r *ReportRepository) FindByShiftAndType(ctx context.Context, shiftID int64, reportType models.ReportType) (*models.Report, error) {
	query := "SELECT " + reportColumns + " FROM reports WHERE shift_id = $1 AND type = $2"
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, shiftID, reportType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find report by shift: %w", err)
	}
	return &report, nil
}

// ListStudentRows returns the report's student rows with names.
func (r *ReportRepository) ListStudentRows(ctx context.Context, reportID int64) ([]models.StudentReportRow, error) {
	query := `SELECT sr.id, sr.report_id, sr.student_id, sr.status, sr.comment, sr.updated_at, s.full_name AS student_name
FROM student_reports sr
JOIN students s ON s.id = sr.student_id
WHERE sr.report_id = $1
ORDER BY s.full_name`
	var rows []models.StudentReportRow
	if err := r.db.SelectContext(ctx, &rows, query, reportID); err != nil {
		return nil, fmt.Errorf("list student reports: %w", err)
	}
	return rows, nil
}

// FindStudentReport returns the mark row for (report, student), or nil when
// the student was not on the frozen list.
func (r *ReportRepository) FindStudentReport(ctx context.Context, reportID, studentID int64) (*models.StudentReport, error) {
	query := `SELECT id, report_id, student_id, status, comment, updated_at
FROM student_reports WHERE report_id = $1 AND student_id = $2`
	var row models.StudentReport
	if err := r.db.GetContext(ctx, &row, query, reportID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find student report: %w", err)
	}
	return &row, nil
}

// UpdateStudentReport stores an attendance mark.
func (r *ReportRepository) UpdateStudentReport(ctx context.Context, id int64, status models.StudentReportStatus, comment *string) (*models.StudentReport, error) {
	query := `UPDATE student_reports SET status = $2, comment = $3, updated_at = $4
WHERE id = $1
RETURNING id, report_id, student_id, status, comment, updated_at`
	var row models.StudentReport
	if err := r.db.GetContext(ctx, &row, query, id, status, comment, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update student report: %w", err)
	}
	return &row, nil
}

// CountPending returns how many marks are still PENDING.
func (r *ReportRepository) CountPending(ctx context.Context, reportID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM student_reports WHERE report_id = $1 AND status = $2",
		reportID, models.StudentReportPending); err != nil {
		return 0, fmt.Errorf("count pending marks: %w", err)
	}
	return count, nil
}

// ListPendingStudents names the students still unmarked, for
// INCOMPLETE_ATTENDANCE error context.
func (r *ReportRepository) ListPendingStudents(ctx context.Context, reportID int64) ([]models.StudentReportRow, error) {
	query := `SELECT sr.id, sr.report_id, sr.student_id, sr.status, sr.comment, sr.updated_at, s.full_name AS student_name
FROM student_reports sr
JOIN students s ON s.id = sr.student_id
WHERE sr.report_id = $1 AND sr.status = $2
ORDER BY s.full_name`
	var rows []models.StudentReportRow
	if err := r.db.SelectContext(ctx, &rows, query, reportID, models.StudentReportPending); err != nil {
		return nil, fmt.Errorf("list pending students: %w", err)
	}
	return rows, nil
}

// MarkSubmitted transitions DRAFT to SUBMITTED. The status guard in the WHERE
// clause makes concurrent submits lose cleanly.
func (r *ReportRepository) MarkSubmitted(ctx context.Context, id, submittedBy int64) (*models.Report, error) {
	now := time.Now().UTC()
	query := `UPDATE reports SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = $4
WHERE id = $1 AND status = $5
RETURNING ` + reportColumns
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id, models.ReportStatusSubmitted, submittedBy, now, models.ReportStatusDraft); err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	return &report, nil
}

// MarkReviewed transitions SUBMITTED to the terminal REVIEWED state.
func (r *ReportRepository) MarkReviewed(ctx context.Context, id, reviewedBy int64) (*models.Report, error) {
	now := time.Now().UTC()
	query := `UPDATE reports SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
WHERE id = $1 AND status = $5
RETURNING ` + reportColumns
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id, models.ReportStatusReviewed, reviewedBy, now, models.ReportStatusSubmitted); err != nil {
		return nil, fmt.Errorf("mark reviewed: %w", err)
	}
	return &report, nil
}

// MarkRejected returns a SUBMITTED report to DRAFT for correction. Existing
// marks are kept as the starting point.
func (r *ReportRepository) MarkRejected(ctx context.Context, id, reviewedBy int64) (*models.Report, error) {
	now := time.Now().UTC()
	query := `UPDATE reports SET status = $2, reviewed_by = $3, rejected_at = $4, submitted_by = NULL, submitted_at = NULL, updated_at = $4
WHERE id = $1 AND status = $5
RETURNING ` + reportColumns
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id, models.ReportStatusDraft, reviewedBy, now, models.ReportStatusSubmitted); err != nil {
		return nil, fmt.Errorf("mark rejected: %w", err)
	}
	return &report, nil
}

// ListByCourse returns reports of a course filtered by status and date range.
func (r *ReportRepository) ListByCourse(ctx context.Context, courseID int64, status *models.ReportStatus, from, to *time.Time, page, pageSize int) ([]models.Report, int, error) {
	where := "course_id = $1"
	args := []interface{}{courseID}
	if status != nil {
		args = append(args, *status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(" AND report_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(" AND report_date <= $%d", len(args))
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s FROM reports WHERE %s ORDER BY report_date DESC, id DESC LIMIT %d OFFSET %d",
		reportColumns, where, pageSize, offset)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM reports WHERE %s", where), args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

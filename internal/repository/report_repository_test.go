package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campwerk/nightwatch-api/internal/models"
)

func newReportRepoMock(t *testing.T) (*ReportRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewReportRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func reportRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "course_id", "group_id", "room_id", "shift_id", "report_date", "type", "status", "comment",
		"submitted_by", "submitted_at", "reviewed_by", "reviewed_at", "rejected_at", "created_at", "updated_at",
	})
}

func TestCreateReportStartsAsDraft(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	day := testDate("2026-07-01")
	groupID, roomID, shiftID := int64(2), int64(3), int64(5)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reports (course_id, group_id, room_id, shift_id, report_date, type, status, created_at, updated_at)")).
		WithArgs(int64(1), groupID, roomID, shiftID, day, models.ReportTypeAttendance, models.ReportStatusDraft, sqlmock.AnyArg()).
		WillReturnRows(reportRows().
			AddRow(int64(9), int64(1), groupID, roomID, shiftID, day, models.ReportTypeAttendance, models.ReportStatusDraft, nil,
				nil, nil, nil, nil, nil, day, day))

	stored, err := repo.Create(context.Background(), nil, &models.Report{
		CourseID:   1,
		GroupID:    &groupID,
		RoomID:     &roomID,
		ShiftID:    &shiftID,
		ReportDate: day,
		Type:       models.ReportTypeAttendance,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, stored.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByShiftAndTypeNoReportIsNil(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE shift_id = $1 AND type = $2")).
		WithArgs(int64(5), models.ReportTypeAttendance).
		WillReturnError(sql.ErrNoRows)

	report, err := repo.FindByShiftAndType(context.Background(), 5, models.ReportTypeAttendance)
	require.NoError(t, err)
	assert.Nil(t, report)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStudentReportNotOnFrozenList(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_reports WHERE report_id = $1 AND student_id = $2")).
		WithArgs(int64(9), int64(100)).
		WillReturnError(sql.ErrNoRows)

	row, err := repo.FindStudentReport(context.Background(), 9, 100)
	require.NoError(t, err)
	assert.Nil(t, row)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubmittedGuardsDraftStatus(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	day := testDate("2026-07-01")
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = $4")).
		WithArgs(int64(9), models.ReportStatusSubmitted, int64(10), sqlmock.AnyArg(), models.ReportStatusDraft).
		WillReturnRows(reportRows().
			AddRow(int64(9), int64(1), nil, nil, nil, day, models.ReportTypeAttendance, models.ReportStatusSubmitted, nil,
				int64(10), day, nil, nil, nil, day, day))

	report, err := repo.MarkSubmitted(context.Background(), 9, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, report.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSubmittedConcurrentLoserGetsNoRows(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $2, submitted_by = $3, submitted_at = $4, updated_at = $4")).
		WithArgs(int64(9), models.ReportStatusSubmitted, int64(10), sqlmock.AnyArg(), models.ReportStatusDraft).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.MarkSubmitted(context.Background(), 9, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkRejectedClearsSubmissionFields(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	day := testDate("2026-07-01")
	rejected := testDate("2026-07-05")
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE reports SET status = $2, reviewed_by = $3, rejected_at = $4, submitted_by = NULL, submitted_at = NULL, updated_at = $4")).
		WithArgs(int64(9), models.ReportStatusDraft, int64(20), sqlmock.AnyArg(), models.ReportStatusSubmitted).
		WillReturnRows(reportRows().
			AddRow(int64(9), int64(1), nil, nil, nil, day, models.ReportTypeAttendance, models.ReportStatusDraft, nil,
				nil, nil, int64(20), nil, rejected, day, rejected))

	report, err := repo.MarkRejected(context.Background(), 9, 20)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	assert.Nil(t, report.SubmittedBy)
	require.NotNil(t, report.RejectedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCourseBuildsFilterClauses(t *testing.T) {
	repo, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	status := models.ReportStatusSubmitted
	from := testDate("2026-07-01")
	to := testDate("2026-07-14")
	day := testDate("2026-07-02")
	mock.ExpectQuery(regexp.QuoteMeta("AND status = $2 AND report_date >= $3 AND report_date <= $4")).
		WithArgs(int64(1), status, from, to).
		WillReturnRows(reportRows().
			AddRow(int64(9), int64(1), nil, nil, nil, day, models.ReportTypeAttendance, status, nil,
				int64(10), day, nil, nil, nil, day, day))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM reports WHERE")).
		WithArgs(int64(1), status, from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reports, total, err := repo.ListByCourse(context.Background(), 1, &status, &from, &to, 1, 50)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

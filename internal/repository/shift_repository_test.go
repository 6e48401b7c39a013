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

func newShiftRepoMock(t *testing.T) (*ShiftRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewShiftRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestInsertIfAbsentCreates(t *testing.T) {
	repo, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	day := testDate("2026-07-01")
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO night_shifts (course_id, room_id, date, materialized_at)")).
		WithArgs(int64(1), int64(3), day, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "room_id", "date", "materialized_at"}).
			AddRow(int64(5), int64(1), int64(3), day, day))

	shift, created, err := repo.InsertIfAbsent(context.Background(), 1, 3, day)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(5), shift.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIfAbsentFallsBackToExisting(t *testing.T) {
	repo, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	day := testDate("2026-07-01")
	// ON CONFLICT DO NOTHING returns no row when the shift already exists.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO night_shifts (course_id, room_id, date, materialized_at)")).
		WithArgs(int64(1), int64(3), day, sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM night_shifts WHERE room_id = $1 AND date = $2")).
		WithArgs(int64(3), day).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "room_id", "date", "materialized_at"}).
			AddRow(int64(5), int64(1), int64(3), day, day))

	shift, created, err := repo.InsertIfAbsent(context.Background(), 1, 3, day)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), shift.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDutyRunsInTransaction(t *testing.T) {
	repo, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shift_duty WHERE shift_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shift_duty (shift_id, supervisor_id, kind, resolved_at)")).
		WithArgs(int64(5), int64(10), models.KindSupervisor, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceDuty(context.Background(), 5, []models.DutyCandidate{
		{SupervisorID: 10, Kind: models.KindSupervisor},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceDutyRollsBackOnInsertFailure(t *testing.T) {
	repo, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM shift_duty WHERE shift_id = $1")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shift_duty (shift_id, supervisor_id, kind, resolved_at)")).
		WithArgs(int64(5), int64(10), models.KindSupervisor, sqlmock.AnyArg()).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.ReplaceDuty(context.Background(), 5, []models.DutyCandidate{
		{SupervisorID: 10, Kind: models.KindSupervisor},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDutyConflictsQueriesUnavailable(t *testing.T) {
	repo, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	from := testDate("2026-07-01")
	to := testDate("2026-07-14")
	day := testDate("2026-07-02")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ns.id AS shift_id, ns.room_id, ns.date, sd.supervisor_id")).
		WithArgs(int64(1), from, to, models.AvailabilityUnavailable).
		WillReturnRows(sqlmock.NewRows([]string{"shift_id", "room_id", "date", "supervisor_id"}).
			AddRow(int64(5), int64(3), day, int64(10)))

	conflicts, err := repo.ListDutyConflicts(context.Background(), 1, from, to)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, int64(10), conflicts[0].SupervisorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campwerk/nightwatch-api/internal/models"
)

func newSupervisorRepoMock(t *testing.T) (*SupervisorRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewSupervisorRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestLockByIDsTakesOrderedRowLocks(t *testing.T) {
	repo, mock, cleanup := newSupervisorRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM supervisors WHERE id IN ($1, $2) ORDER BY id FOR UPDATE")).
		WithArgs(int64(11), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "kind", "status"}).
			AddRow(int64(10), "Alex Baker", models.KindSupervisor, models.SupervisorActive).
			AddRow(int64(11), "Sam Fields", models.KindStaff, models.SupervisorActive))

	sups, err := repo.LockByIDs(context.Background(), nil, []int64{11, 10})
	require.NoError(t, err)
	require.Len(t, sups, 2)
	assert.Equal(t, int64(10), sups[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockByIDsEmptyInput(t *testing.T) {
	repo, mock, cleanup := newSupervisorRepoMock(t)
	defer cleanup()

	sups, err := repo.LockByIDs(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, sups)
	require.NoError(t, mock.ExpectationsWereMet())
}

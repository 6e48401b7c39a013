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

func newRoomRepoMock(t *testing.T) (*RoomRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewRoomRepository(sqlxDB), mock, func() { sqlxDB.Close() }
}

func TestLockByIDTakesRowLock(t *testing.T) {
	repo, mock, cleanup := newRoomRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "gender", "number_of_staff"}).
			AddRow(int64(3), "North Wing", models.GenderMale, 2))

	room, err := repo.LockByID(context.Background(), nil, 3)
	require.NoError(t, err)
	assert.Equal(t, "North Wing", room.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

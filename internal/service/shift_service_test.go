package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type stubShiftStore struct {
	shifts    map[string]*models.NightShift
	duty      map[int64][]models.DutyCandidate
	conflicts []models.DutyConflict
	nextID    int64
}

func newStubShiftStore() *stubShiftStore {
	return &stubShiftStore{
		shifts: make(map[string]*models.NightShift),
		duty:   make(map[int64][]models.DutyCandidate),
	}
}

func shiftKey(roomID int64, date time.Time) string {
	return fmt.Sprintf("%d/%s", roomID, date.Format("2006-01-02"))
}

func (s *stubShiftStore) InsertIfAbsent(_ context.Context, courseID, roomID int64, date time.Time) (*models.NightShift, bool, error) {
	key := shiftKey(roomID, date)
	if existing, ok := s.shifts[key]; ok {
		return existing, false, nil
	}
	s.nextID++
	shift := &models.NightShift{ID: s.nextID, CourseID: courseID, RoomID: roomID, Date: date}
	s.shifts[key] = shift
	return shift, true, nil
}

func (s *stubShiftStore) FindByID(_ context.Context, id int64) (*models.NightShift, error) {
	for _, shift := range s.shifts {
		if shift.ID == id {
			return shift, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubShiftStore) ListByCourseRange(_ context.Context, courseID int64, from, to time.Time) ([]models.NightShift, error) {
	var out []models.NightShift
	for _, shift := range s.shifts {
		if shift.CourseID == courseID && !shift.Date.Before(from) && !shift.Date.After(to) {
			out = append(out, *shift)
		}
	}
	return out, nil
}

func (s *stubShiftStore) ReplaceDuty(_ context.Context, shiftID int64, duty []models.DutyCandidate) error {
	s.duty[shiftID] = duty
	return nil
}

func (s *stubShiftStore) ListDuty(_ context.Context, shiftID int64) ([]models.ShiftDuty, error) {
	var out []models.ShiftDuty
	for _, c := range s.duty[shiftID] {
		out = append(out, models.ShiftDuty{ShiftID: shiftID, SupervisorID: c.SupervisorID, Kind: c.Kind})
	}
	return out, nil
}

func (s *stubShiftStore) ListDutyConflicts(_ context.Context, _ int64, _, _ time.Time) ([]models.DutyConflict, error) {
	return s.conflicts, nil
}

type stubCourseReader struct {
	courses map[int64]*models.Course
}

func (s *stubCourseReader) FindByID(_ context.Context, id int64) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

type stubRoomLister struct {
	rooms []models.Room
}

func (s *stubRoomLister) ListBoundByCourse(_ context.Context, _ int64) ([]models.Room, error) {
	return s.rooms, nil
}

type stubDutyResolver struct {
	candidates map[int64][]models.DutyCandidate
}

func (s *stubDutyResolver) DutyCandidatesForRoom(_ context.Context, _ sqlx.ExtContext, roomID int64, _ time.Time) ([]models.DutyCandidate, error) {
	return s.candidates[roomID], nil
}

func newShiftFixture(store *stubShiftStore, rooms []models.Room, candidates map[int64][]models.DutyCandidate) *ShiftService {
	courses := &stubCourseReader{courses: map[int64]*models.Course{
		1: {ID: 1, Name: "Summer Camp", Status: models.CourseStatusRunning},
	}}
	return NewShiftService(
		store,
		courses,
		&stubRoomLister{rooms: rooms},
		&stubDutyResolver{candidates: candidates},
		nil, nil,
		config.SchedulerConfig{MaxRangeDays: 62},
	)
}

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func TestMaterializeShiftsCreatesRoomDateGrid(t *testing.T) {
	store := newStubShiftStore()
	rooms := []models.Room{{ID: 1, CourseID: 1}, {ID: 2, CourseID: 1}}
	svc := newShiftFixture(store, rooms, nil)

	result, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-01"), date("2026-07-03"))
	require.NoError(t, err)
	assert.Equal(t, 6, result.Created)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, result.Items, 6)
	assert.Len(t, store.shifts, 6)
}

func TestMaterializeShiftsOverlappingRangeIsIdempotent(t *testing.T) {
	store := newStubShiftStore()
	rooms := []models.Room{{ID: 1, CourseID: 1}, {ID: 2, CourseID: 1}}
	svc := newShiftFixture(store, rooms, nil)

	_, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-01"), date("2026-07-03"))
	require.NoError(t, err)

	// Overlaps the first run by two days and extends it by two.
	result, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-02"), date("2026-07-05"))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Created)
	assert.Equal(t, 4, result.Skipped)
	assert.Len(t, store.shifts, 10)
}

func TestMaterializeShiftsFreezesDuty(t *testing.T) {
	store := newStubShiftStore()
	rooms := []models.Room{{ID: 1, CourseID: 1}}
	candidates := map[int64][]models.DutyCandidate{
		1: {{SupervisorID: 10, Kind: models.KindSupervisor}, {SupervisorID: 11, Kind: models.KindStaff}},
	}
	svc := newShiftFixture(store, rooms, candidates)

	result, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-01"), date("2026-07-01"))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	shift := store.shifts[shiftKey(1, date("2026-07-01"))]
	require.NotNil(t, shift)
	assert.Len(t, store.duty[shift.ID], 2)
}

func TestMaterializeShiftsRejectsInvertedRange(t *testing.T) {
	svc := newShiftFixture(newStubShiftStore(), nil, nil)

	_, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-10"), date("2026-07-01"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErrors.FromError(err).Code)
}

func TestMaterializeShiftsRejectsOversizedRange(t *testing.T) {
	svc := newShiftFixture(newStubShiftStore(), nil, nil)

	_, err := svc.MaterializeShifts(context.Background(), 1, date("2026-01-01"), date("2026-12-31"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRange.Code, appErrors.FromError(err).Code)
}

func TestMaterializeShiftsUnknownCourse(t *testing.T) {
	svc := newShiftFixture(newStubShiftStore(), nil, nil)

	_, err := svc.MaterializeShifts(context.Background(), 99, date("2026-07-01"), date("2026-07-03"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveDutyRefreezesFromCurrentBindings(t *testing.T) {
	store := newStubShiftStore()
	rooms := []models.Room{{ID: 1, CourseID: 1}}
	resolver := &stubDutyResolver{candidates: map[int64][]models.DutyCandidate{}}
	courses := &stubCourseReader{courses: map[int64]*models.Course{1: {ID: 1}}}
	svc := NewShiftService(store, courses, &stubRoomLister{rooms: rooms}, resolver, nil, nil, config.SchedulerConfig{})

	_, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-01"), date("2026-07-01"))
	require.NoError(t, err)
	shift := store.shifts[shiftKey(1, date("2026-07-01"))]
	assert.Empty(t, store.duty[shift.ID])

	// A binding appears after materialization; re-resolving picks it up.
	resolver.candidates[1] = []models.DutyCandidate{{SupervisorID: 10, Kind: models.KindSupervisor}}
	detail, err := svc.ResolveDuty(context.Background(), shift.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Duty, 1)
	assert.True(t, detail.IsSupervisorAssigned)
	assert.False(t, detail.IsStaffAssigned)
}

func TestGetDerivesAssignmentFlags(t *testing.T) {
	store := newStubShiftStore()
	rooms := []models.Room{{ID: 1, CourseID: 1}}
	candidates := map[int64][]models.DutyCandidate{
		1: {{SupervisorID: 11, Kind: models.KindStaff}},
	}
	svc := newShiftFixture(store, rooms, candidates)

	_, err := svc.MaterializeShifts(context.Background(), 1, date("2026-07-01"), date("2026-07-01"))
	require.NoError(t, err)
	shift := store.shifts[shiftKey(1, date("2026-07-01"))]

	detail, err := svc.Get(context.Background(), shift.ID)
	require.NoError(t, err)
	assert.False(t, detail.IsSupervisorAssigned)
	assert.True(t, detail.IsStaffAssigned)
}

func TestDutyConflictsSurfacedNotResolved(t *testing.T) {
	store := newStubShiftStore()
	store.conflicts = []models.DutyConflict{
		{ShiftID: 1, RoomID: 1, Date: date("2026-07-02"), SupervisorID: 10},
	}
	svc := newShiftFixture(store, nil, nil)

	conflicts, err := svc.DutyConflicts(context.Background(), 1, date("2026-07-01"), date("2026-07-05"))
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, int64(10), conflicts[0].SupervisorID)
}

package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type shiftStore interface {
	InsertIfAbsent(ctx context.Context, courseID, roomID int64, date time.Time) (*models.NightShift, bool, error)
	FindByID(ctx context.Context, id int64) (*models.NightShift, error)
	ListByCourseRange(ctx context.Context, courseID int64, from, to time.Time) ([]models.NightShift, error)
	ReplaceDuty(ctx context.Context, shiftID int64, duty []models.DutyCandidate) error
	ListDuty(ctx context.Context, shiftID int64) ([]models.ShiftDuty, error)
	ListDutyConflicts(ctx context.Context, courseID int64, from, to time.Time) ([]models.DutyConflict, error)
}

type shiftCourseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type shiftRoomLister interface {
	ListBoundByCourse(ctx context.Context, courseID int64) ([]models.Room, error)
}

type dutyResolver interface {
	DutyCandidatesForRoom(ctx context.Context, exec sqlx.ExtContext, roomID int64, date time.Time) ([]models.DutyCandidate, error)
}

type shiftMetrics interface {
	AddShiftsMaterialized(n int)
}

// ShiftService materializes night shift instances from the calendar and the
// current room bindings, and resolves who is on duty. Every duty decision
// re-reads current bindings; nothing is cached across calls.
type ShiftService struct {
	shifts    shiftStore
	courses   shiftCourseReader
	rooms     shiftRoomLister
	bindings  dutyResolver
	metrics   shiftMetrics
	logger    *zap.Logger
	scheduler config.SchedulerConfig
}

// NewShiftService wires the scheduler.
func NewShiftService(
	shifts shiftStore,
	courses shiftCourseReader,
	rooms shiftRoomLister,
	bindings dutyResolver,
	metrics shiftMetrics,
	logger *zap.Logger,
	scheduler config.SchedulerConfig,
) *ShiftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scheduler.MaxRangeDays <= 0 {
		scheduler.MaxRangeDays = 62
	}
	return &ShiftService{
		shifts:    shifts,
		courses:   courses,
		rooms:     rooms,
		bindings:  bindings,
		metrics:   metrics,
		logger:    logger,
		scheduler: scheduler,
	}
}

// MaterializeShifts creates one shift per bound room per date in the
// inclusive range. Existing (room, date) pairs are skipped, so overlapping or
// retried runs are idempotent and an interrupted run resumes where it left
// off. Per-item failures are collected instead of aborting the batch.
func (s *ShiftService) MaterializeShifts(ctx context.Context, courseID int64, from, to time.Time) (*models.MaterializationResult, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "date_to precedes date_from")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > s.scheduler.MaxRangeDays {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "range exceeds the materialization limit")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found")
	}

	rooms, err := s.rooms.ListBoundByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bound rooms")
	}

	result := &models.MaterializationResult{}
	for _, room := range rooms {
		for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				// Interrupted runs return what was done; the caller re-runs
				// the same range to finish.
				return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "materialization interrupted")
			}
			item := models.MaterializationItem{RoomID: room.ID, Date: date}
			shift, created, err := s.shifts.InsertIfAbsent(ctx, courseID, room.ID, date)
			if err != nil {
				item.Error = err.Error()
				result.Items = append(result.Items, item)
				continue
			}
			if created {
				item.Created = true
				result.Created++
				if err := s.freezeDuty(ctx, shift); err != nil {
					s.logger.Warn("duty resolution failed",
						zap.Int64("shift_id", shift.ID), zap.Error(err))
				}
			} else {
				result.Skipped++
			}
			result.Items = append(result.Items, item)
		}
	}

	if s.metrics != nil {
		s.metrics.AddShiftsMaterialized(result.Created)
	}
	return result, nil
}

// ResolveDuty re-freezes the duty roster of a shift from current bindings.
// Used after a reassignment so upcoming shifts pick up the new supervisor
// set.
func (s *ShiftService) ResolveDuty(ctx context.Context, shiftID int64) (*models.ShiftDetail, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, notFoundOrInternal(err, "shift not found")
	}
	if err := s.freezeDuty(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve duty")
	}
	return s.detail(ctx, shift)
}

// Get returns a shift with its frozen duty roster and assignment flags
// derived from current bindings at read time.
func (s *ShiftService) Get(ctx context.Context, shiftID int64) (*models.ShiftDetail, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		return nil, notFoundOrInternal(err, "shift not found")
	}
	return s.detail(ctx, shift)
}

// List returns a course's shifts within the inclusive range.
func (s *ShiftService) List(ctx context.Context, courseID int64, from, to time.Time) ([]models.NightShift, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "date_to precedes date_from")
	}
	shifts, err := s.shifts.ListByCourseRange(ctx, courseID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	return shifts, nil
}

// DutyConflicts surfaces shifts whose frozen duty supervisor has declared the
// shift date unavailable. The binding of record stays intact; reassignment is
// an explicit assignment engine call.
func (s *ShiftService) DutyConflicts(ctx context.Context, courseID int64, from, to time.Time) ([]models.DutyConflict, error) {
	from = truncateToDay(from)
	to = truncateToDay(to)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "date_to precedes date_from")
	}
	conflicts, err := s.shifts.ListDutyConflicts(ctx, courseID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list duty conflicts")
	}
	return conflicts, nil
}

func (s *ShiftService) freezeDuty(ctx context.Context, shift *models.NightShift) error {
	candidates, err := s.bindings.DutyCandidatesForRoom(ctx, nil, shift.RoomID, shift.Date)
	if err != nil {
		return err
	}
	return s.shifts.ReplaceDuty(ctx, shift.ID, candidates)
}

func (s *ShiftService) detail(ctx context.Context, shift *models.NightShift) (*models.ShiftDetail, error) {
	duty, err := s.shifts.ListDuty(ctx, shift.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list duty")
	}
	candidates, err := s.bindings.DutyCandidatesForRoom(ctx, nil, shift.RoomID, shift.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read bindings")
	}
	detail := &models.ShiftDetail{NightShift: *shift, Duty: duty}
	detail.IsSupervisorAssigned, detail.IsStaffAssigned = assignmentFlags(candidates)
	return detail, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// assignmentFlags derives the per-kind assignment flags from the current
// binding snapshot. The flags are never persisted.
func assignmentFlags(candidates []models.DutyCandidate) (supervisorAssigned, staffAssigned bool) {
	for _, c := range candidates {
		switch c.Kind {
		case models.KindSupervisor:
			supervisorAssigned = true
		case models.KindStaff:
			staffAssigned = true
		}
	}
	return supervisorAssigned, staffAssigned
}

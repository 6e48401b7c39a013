package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	"github.com/campwerk/nightwatch-api/pkg/database"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type assignmentGroupReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentGroup, error)
	CountStudents(ctx context.Context, exec sqlx.ExtContext, groupID int64) (int, error)
}

type assignmentRoomReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Room, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Room, error)
}

type assignmentSupervisorReader interface {
	LockByIDs(ctx context.Context, exec sqlx.ExtContext, ids []int64) ([]models.Supervisor, error)
}

type bindingStore interface {
	ActiveBindingByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) (*models.GroupRoomBinding, error)
	RoomOccupants(ctx context.Context, exec sqlx.ExtContext, roomID int64) ([]models.RoomOccupant, error)
	BindGroup(ctx context.Context, exec sqlx.ExtContext, groupID, roomID int64) (*models.GroupRoomBinding, error)
	ReleaseGroupBinding(ctx context.Context, exec sqlx.ExtContext, groupID int64) error
	ListAssignmentsByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) ([]models.SupervisorAssignment, error)
	FindOverlapping(ctx context.Context, exec sqlx.ExtContext, supervisorID, excludeGroupID int64, from, to time.Time) ([]models.SupervisorAssignment, error)
	ReplaceGroupAssignments(ctx context.Context, exec sqlx.ExtContext, groupID int64, assignments []models.SupervisorAssignment) error
	ReleaseAssignment(ctx context.Context, exec sqlx.ExtContext, supervisorID, groupID int64) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type eventEmitter interface {
	Emit(kind models.EventKind, payload map[string]interface{})
}

type assignmentMetrics interface {
	ObserveAssignment(operation, result string)
}

// AssignmentService is the assignment engine: it binds groups to rooms and
// supervisors to groups while holding the gender, capacity and no-double-
// booking invariants. Every mutating operation validates against the current
// binding snapshot inside one transaction, so two concurrent calls cannot
// both pass a check against stale state.
type AssignmentService struct {
	groups      assignmentGroupReader
	rooms       assignmentRoomReader
	supervisors assignmentSupervisorReader
	bindings    bindingStore
	tx          txProvider
	events      eventEmitter
	metrics     assignmentMetrics
	validator   *validator.Validate
	logger      *zap.Logger
	roster      config.RosterConfig
}

// NewAssignmentService wires the assignment engine.
func NewAssignmentService(
	groups assignmentGroupReader,
	rooms assignmentRoomReader,
	supervisors assignmentSupervisorReader,
	bindings bindingStore,
	tx txProvider,
	events eventEmitter,
	metrics assignmentMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	roster config.RosterConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if roster.StudentsPerStaff <= 0 {
		roster.StudentsPerStaff = 8
	}
	return &AssignmentService{
		groups:      groups,
		rooms:       rooms,
		supervisors: supervisors,
		bindings:    bindings,
		tx:          tx,
		events:      events,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		roster:      roster,
	}
}

// AssignSupervisorsRequest replaces the supervisor set of a group for an
// effective date range.
type AssignSupervisorsRequest struct {
	GroupID       int64   `json:"group_id" validate:"required"`
	SupervisorIDs []int64 `json:"supervisor_ids" validate:"required,min=0,dive,gt=0"`
	EffectiveFrom string  `json:"effective_from" validate:"required"`
	EffectiveTo   string  `json:"effective_to" validate:"required"`
}

// AssignGroupToRoom rebinds a group to a room. Any previous room binding of
// the group is released in the same transaction. Fails with GENDER_MISMATCH
// or CAPACITY_EXCEEDED before anything is written.
func (s *AssignmentService) AssignGroupToRoom(ctx context.Context, groupID, roomID int64) (*models.RoomSnapshot, error) {
	snapshot, err := s.assignGroupToRoom(ctx, groupID, roomID)
	s.observe("assign_group_to_room", err)
	if err != nil {
		return nil, err
	}
	s.emit(models.EventAssignmentChanged, map[string]interface{}{
		"operation": "assign_group_to_room",
		"group_id":  groupID,
		"room_id":   roomID,
	})
	return snapshot, nil
}

func (s *AssignmentService) assignGroupToRoom(ctx context.Context, groupID, roomID int64) (*models.RoomSnapshot, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	group, err := s.groups.FindByID(ctx, tx, groupID)
	if err != nil {
		return nil, notFoundOrInternal(err, "group not found")
	}
	// Locking the room row serializes concurrent bindings into the same room;
	// without it two transactions could both pass the capacity check against
	// the same snapshot and overfill the room on commit.
	room, err := s.rooms.LockByID(ctx, tx, roomID)
	if err != nil {
		return nil, notFoundOrInternal(err, "room not found")
	}

	if group.Gender != room.Gender {
		return nil, appErrors.Clone(appErrors.ErrGenderMismatch,
			fmt.Sprintf("group %q is %s but room %q is %s", group.Name, group.Gender, room.Name, room.Gender))
	}
	if group.CourseID != room.CourseID {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("group %q belongs to another course than room %q", group.Name, room.Name))
	}

	occupants, err := s.bindings.RoomOccupants(ctx, tx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read room occupancy")
	}
	groupSize, err := s.groups.CountStudents(ctx, tx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group roster")
	}

	occupied := 0
	for _, occ := range occupants {
		if occ.GroupID == groupID {
			// Rebinding to the same room must not count the group twice.
			continue
		}
		occupied += occ.StudentCount
	}
	capacity := room.Capacity(s.roster.StudentsPerStaff)
	if occupied+groupSize > capacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded,
			fmt.Sprintf("room %q holds %d of %d students, group of %d does not fit", room.Name, occupied, capacity, groupSize))
	}

	if _, err := s.bindings.BindGroup(ctx, tx, groupID, roomID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bind group")
	}

	occupants, err = s.bindings.RoomOccupants(ctx, tx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read room occupancy")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit binding")
	}
	committed = true

	snapshot := &models.RoomSnapshot{Room: *room, Capacity: capacity, Occupants: occupants}
	for _, occ := range occupants {
		snapshot.Occupied += occ.StudentCount
	}
	return snapshot, nil
}

// AssignSupervisorsToGroup replaces the group's supervisor set atomically:
// either the full requested set commits or the old set stays intact. Fails
// with CONFLICTING_BOOKING when any supervisor holds an overlapping
// assignment to a different group.
func (s *AssignmentService) AssignSupervisorsToGroup(ctx context.Context, req AssignSupervisorsRequest) (*models.GroupDetail, error) {
	detail, err := s.assignSupervisors(ctx, req)
	s.observe("assign_supervisors_to_group", err)
	if err != nil {
		return nil, err
	}
	s.emit(models.EventAssignmentChanged, map[string]interface{}{
		"operation":      "assign_supervisors_to_group",
		"group_id":       req.GroupID,
		"supervisor_ids": req.SupervisorIDs,
	})
	return detail, nil
}

func (s *AssignmentService) assignSupervisors(ctx context.Context, req AssignSupervisorsRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	from, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.EffectiveTo)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_to, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "effective_to precedes effective_from")
	}

	seen := make(map[int64]struct{}, len(req.SupervisorIDs))
	for _, id := range req.SupervisorIDs {
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("supervisor %d listed twice", id))
		}
		seen[id] = struct{}{}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	group, err := s.groups.FindByID(ctx, tx, req.GroupID)
	if err != nil {
		return nil, notFoundOrInternal(err, "group not found")
	}

	// Row locks on the supervisors serialize concurrent booking checks; two
	// transactions assigning the same supervisor cannot both see a clear
	// overlap query. The repository locks in ID order.
	sups, err := s.supervisors.LockByIDs(ctx, tx, req.SupervisorIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisors")
	}
	if len(sups) != len(req.SupervisorIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more supervisors do not exist")
	}
	for _, sup := range sups {
		if sup.Status != models.SupervisorActive {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("supervisor %q is inactive", sup.FullName))
		}
	}

	for _, id := range req.SupervisorIDs {
		overlapping, err := s.bindings.FindOverlapping(ctx, tx, id, req.GroupID, from, to)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check bookings")
		}
		if len(overlapping) > 0 {
			clash := overlapping[0]
			conflicts := make([]models.BookingConflict, 0, len(overlapping))
			for _, a := range overlapping {
				conflicts = append(conflicts, models.BookingConflict{
					SupervisorID:  a.SupervisorID,
					GroupID:       a.GroupID,
					EffectiveFrom: a.EffectiveFrom,
					EffectiveTo:   a.EffectiveTo,
				})
			}
			return nil, appErrors.Clone(appErrors.ErrConflictingBooking,
				fmt.Sprintf("supervisor %d is already assigned to group %d from %s to %s",
					id, clash.GroupID,
					clash.EffectiveFrom.Format("2006-01-02"), clash.EffectiveTo.Format("2006-01-02"))).
				WithDetails(conflicts)
		}
	}

	assignments := make([]models.SupervisorAssignment, 0, len(req.SupervisorIDs))
	for _, id := range req.SupervisorIDs {
		assignments = append(assignments, models.SupervisorAssignment{
			SupervisorID:  id,
			GroupID:       req.GroupID,
			EffectiveFrom: from,
			EffectiveTo:   to,
		})
	}
	if err := s.bindings.ReplaceGroupAssignments(ctx, tx, req.GroupID, assignments); err != nil {
		// The exclusion constraint on overlapping assignments is the backstop
		// when a concurrent writer slips past the overlap query.
		if database.IsExclusionViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflictingBooking, "supervisor was booked concurrently for an overlapping range")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace supervisor set")
	}

	binding, err := s.bindings.ActiveBindingByGroup(ctx, tx, req.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read room binding")
	}
	count, err := s.groups.CountStudents(ctx, tx, req.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count group roster")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit supervisor set")
	}
	committed = true

	detail := &models.GroupDetail{StudentGroup: *group, SupervisorIDs: req.SupervisorIDs, StudentCount: count}
	if binding != nil {
		detail.RoomID = &binding.RoomID
	}
	return detail, nil
}

// RemoveGroupBinding releases the group's room binding. Shift instances and
// unsubmitted reports that depended on it keep existing; their assignment
// flags recompute to false at read time. Submitted history is untouched.
func (s *AssignmentService) RemoveGroupBinding(ctx context.Context, groupID int64) error {
	err := s.bindings.ReleaseGroupBinding(ctx, nil, groupID)
	s.observe("remove_group_binding", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "group has no active room binding")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release binding")
	}
	s.emit(models.EventAssignmentChanged, map[string]interface{}{
		"operation": "remove_group_binding",
		"group_id":  groupID,
	})
	return nil
}

// RemoveSupervisorAssignment releases one supervisor from a group.
func (s *AssignmentService) RemoveSupervisorAssignment(ctx context.Context, supervisorID, groupID int64) error {
	err := s.bindings.ReleaseAssignment(ctx, nil, supervisorID, groupID)
	s.observe("remove_supervisor_assignment", err)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "supervisor is not assigned to this group")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release assignment")
	}
	s.emit(models.EventAssignmentChanged, map[string]interface{}{
		"operation":     "remove_supervisor_assignment",
		"group_id":      groupID,
		"supervisor_id": supervisorID,
	})
	return nil
}

func (s *AssignmentService) emit(kind models.EventKind, payload map[string]interface{}) {
	if s.events != nil {
		s.events.Emit(kind, payload)
	}
}

func (s *AssignmentService) observe(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = appErrors.FromError(err).Code
	}
	s.metrics.ObserveAssignment(operation, result)
}

func notFoundOrInternal(err error, message string) *appErrors.Error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "lookup failed")
}

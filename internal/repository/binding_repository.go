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

// BindingRepository handles the explicit relation tables: group to room
// bindings and supervisor to group assignments. Mutating methods accept an
// sqlx.ExtContext so the assignment engine can run its read-validate-write
// cycle inside one transaction.
type BindingRepository struct {
	db *sqlx.DB
}

// NewBindingRepository constructs the repository.
func NewBindingRepository(db *sqlx.DB) *BindingRepository {
	return &BindingRepository{db: db}
}

// ActiveBindingByGroup returns the group's unreleased room binding, or nil.
func (r *BindingRepository) ActiveBindingByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) (*models.GroupRoomBinding, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, group_id, room_id, bound_at, released_at
FROM group_room_bindings WHERE group_id = $1 AND released_at IS NULL`
	var binding models.GroupRoomBinding
	if err := sqlx.GetContext(ctx, exec, &binding, query, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active binding by group: %w", err)
	}
	return &binding, nil
}

// RoomOccupants lists the groups currently bound to a room with their active
// roster sizes.
func (r *BindingRepository) RoomOccupants(ctx context.Context, exec sqlx.ExtContext, roomID int64) ([]models.RoomOccupant, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT g.id AS group_id, g.name AS group_name, g.gender,
       (SELECT COUNT(*) FROM students s WHERE s.group_id = g.id AND s.active = TRUE) AS student_count
FROM group_room_bindings b
JOIN student_groups g ON g.id = b.group_id
WHERE b.room_id = $1 AND b.released_at IS NULL
ORDER BY g.id`
	var occupants []models.RoomOccupant
	if err := sqlx.SelectContext(ctx, exec, &occupants, query, roomID); err != nil {
		return nil, fmt.Errorf("room occupants: %w", err)
	}
	return occupants, nil
}

// BindGroup releases any prior binding of the group and inserts the new one.
func (r *BindingRepository) BindGroup(ctx context.Context, exec sqlx.ExtContext, groupID, roomID int64) (*models.GroupRoomBinding, error) {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	if _, err := exec.ExecContext(ctx,
		`UPDATE group_room_bindings SET released_at = $2 WHERE group_id = $1 AND released_at IS NULL`,
		groupID, now); err != nil {
		return nil, fmt.Errorf("release prior binding: %w", err)
	}
	query := `INSERT INTO group_room_bindings (group_id, room_id, bound_at)
VALUES ($1, $2, $3)
RETURNING id, group_id, room_id, bound_at, released_at`
	var binding models.GroupRoomBinding
	if err := sqlx.GetContext(ctx, exec, &binding, query, groupID, roomID, now); err != nil {
		return nil, fmt.Errorf("bind group: %w", err)
	}
	return &binding, nil
}

// ReleaseGroupBinding releases the group's active room binding.
func (r *BindingRepository) ReleaseGroupBinding(ctx context.Context, exec sqlx.ExtContext, groupID int64) error {
	if exec == nil {
		exec = r.db
	}
	res, err := exec.ExecContext(ctx,
		`UPDATE group_room_bindings SET released_at = $2 WHERE group_id = $1 AND released_at IS NULL`,
		groupID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release group binding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAssignmentsByGroup returns the group's unreleased supervisor assignments.
func (r *BindingRepository) ListAssignmentsByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) ([]models.SupervisorAssignment, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, supervisor_id, group_id, effective_from, effective_to, released_at
FROM supervisor_assignments WHERE group_id = $1 AND released_at IS NULL
ORDER BY supervisor_id`
	var assignments []models.SupervisorAssignment
	if err := sqlx.SelectContext(ctx, exec, &assignments, query, groupID); err != nil {
		return nil, fmt.Errorf("list assignments by group: %w", err)
	}
	return assignments, nil
}

// FindOverlapping returns unreleased assignments of the supervisor to other
// groups whose effective range intersects [from, to]. Used for the
// double-booking check.
func (r *BindingRepository) FindOverlapping(ctx context.Context, exec sqlx.ExtContext, supervisorID, excludeGroupID int64, from, to time.Time) ([]models.SupervisorAssignment, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, supervisor_id, group_id, effective_from, effective_to, released_at
FROM supervisor_assignments
WHERE supervisor_id = $1 AND group_id <> $2 AND released_at IS NULL
  AND effective_from <= $4 AND effective_to >= $3`
	var assignments []models.SupervisorAssignment
	if err := sqlx.SelectContext(ctx, exec, &assignments, query, supervisorID, excludeGroupID, from, to); err != nil {
		return nil, fmt.Errorf("find overlapping assignments: %w", err)
	}
	return assignments, nil
}

// ReplaceGroupAssignments releases the current supervisor set of the group
// and inserts the new one. Callers run this inside a transaction so the
// replacement is all-or-nothing.
func (r *BindingRepository) ReplaceGroupAssignments(ctx context.Context, exec sqlx.ExtContext, groupID int64, assignments []models.SupervisorAssignment) error {
	if exec == nil {
		exec = r.db
	}
	now := time.Now().UTC()
	if _, err := exec.ExecContext(ctx,
		`UPDATE supervisor_assignments SET released_at = $2 WHERE group_id = $1 AND released_at IS NULL`,
		groupID, now); err != nil {
		return fmt.Errorf("release group assignments: %w", err)
	}
	query := `INSERT INTO supervisor_assignments (supervisor_id, group_id, effective_from, effective_to)
VALUES ($1, $2, $3, $4)`
	for _, a := range assignments {
		if _, err := exec.ExecContext(ctx, query, a.SupervisorID, groupID, a.EffectiveFrom, a.EffectiveTo); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
	}
	return nil
}

// ReleaseAssignment releases one supervisor's assignment to a group.
func (r *BindingRepository) ReleaseAssignment(ctx context.Context, exec sqlx.ExtContext, supervisorID, groupID int64) error {
	if exec == nil {
		exec = r.db
	}
	res, err := exec.ExecContext(ctx,
		`UPDATE supervisor_assignments SET released_at = $3 WHERE supervisor_id = $1 AND group_id = $2 AND released_at IS NULL`,
		supervisorID, groupID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("release assignment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DutyCandidatesForRoom resolves which active supervisors are bound to the
// room, through its group bindings, on the given date. This is the current
// binding snapshot duty resolution freezes onto a shift.
func (r *BindingRepository) DutyCandidatesForRoom(ctx context.Context, exec sqlx.ExtContext, roomID int64, date time.Time) ([]models.DutyCandidate, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT DISTINCT sa.supervisor_id, sup.kind
FROM group_room_bindings b
JOIN supervisor_assignments sa ON sa.group_id = b.group_id AND sa.released_at IS NULL
JOIN supervisors sup ON sup.id = sa.supervisor_id AND sup.status = $3
WHERE b.room_id = $1 AND b.released_at IS NULL
  AND sa.effective_from <= $2 AND sa.effective_to >= $2
ORDER BY sa.supervisor_id`
	var candidates []models.DutyCandidate
	if err := sqlx.SelectContext(ctx, exec, &candidates, query, roomID, date, models.SupervisorActive); err != nil {
		return nil, fmt.Errorf("duty candidates for room: %w", err)
	}
	return candidates, nil
}

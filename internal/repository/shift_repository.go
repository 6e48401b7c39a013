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

// ShiftRepository handles night shift instances and their frozen duty rosters.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository constructs the repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

const shiftColumns = "id, course_id, room_id, date, materialized_at"

// InsertIfAbsent creates the shift for (room, date) unless one already
// exists. The (room_id, date) unique index makes materialization idempotent
// and safe to retry after partial failure.
func (r *ShiftRepository) InsertIfAbsent(ctx context.Context, courseID, roomID int64, date time.Time) (*models.NightShift, bool, error) {
	query := `INSERT INTO night_shifts (course_id, room_id, date, materialized_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (room_id, date) DO NOTHING
RETURNING ` + shiftColumns
	var shift models.NightShift
	err := r.db.GetContext(ctx, &shift, query, courseID, roomID, date, time.Now().UTC())
	if err == nil {
		return &shift, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("insert shift: %w", err)
	}

	existing, err := r.FindByRoomAndDate(ctx, roomID, date)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// FindByID returns a shift by ID.
func (r *ShiftRepository) FindByID(ctx context.Context, id int64) (*models.NightShift, error) {
	query := "SELECT " + shiftColumns + " FROM night_shifts WHERE id = $1"
	var shift models.NightShift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, fmt.Errorf("find shift: %w", err)
	}
	return &shift, nil
}

// FindByRoomAndDate returns the shift instance for a (room, date) pair.
func (r *ShiftRepository) FindByRoomAndDate(ctx context.Context, roomID int64, date time.Time) (*models.NightShift, error) {
	query := "SELECT " + shiftColumns + " FROM night_shifts WHERE room_id = $1 AND date = $2"
	var shift models.NightShift
	if err := r.db.GetContext(ctx, &shift, query, roomID, date); err != nil {
		return nil, fmt.Errorf("find shift by room and date: %w", err)
	}
	return &shift, nil
}

// ListByCourseRange returns shifts of a course within an inclusive date range.
func (r *ShiftRepository) ListByCourseRange(ctx context.Context, courseID int64, from, to time.Time) ([]models.NightShift, error) {
	query := "SELECT " + shiftColumns + ` FROM night_shifts
WHERE course_id = $1 AND date >= $2 AND date <= $3
ORDER BY date, room_id`
	var shifts []models.NightShift
	if err := r.db.SelectContext(ctx, &shifts, query, courseID, from, to); err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	return shifts, nil
}

// ReplaceDuty freezes a new duty roster onto the shift.
func (r *ShiftRepository) ReplaceDuty(ctx context.Context, shiftID int64, duty []models.DutyCandidate) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace duty: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM shift_duty WHERE shift_id = $1", shiftID); err != nil {
		return fmt.Errorf("clear shift duty: %w", err)
	}
	now := time.Now().UTC()
	for _, d := range duty {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shift_duty (shift_id, supervisor_id, kind, resolved_at) VALUES ($1, $2, $3, $4)`,
			shiftID, d.SupervisorID, d.Kind, now); err != nil {
			return fmt.Errorf("insert shift duty: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace duty: %w", err)
	}
	committed = true
	return nil
}

// ListDuty returns the frozen duty roster of a shift.
func (r *ShiftRepository) ListDuty(ctx context.Context, shiftID int64) ([]models.ShiftDuty, error) {
	query := `SELECT shift_id, supervisor_id, kind, resolved_at
FROM shift_duty WHERE shift_id = $1 ORDER BY supervisor_id`
	var duty []models.ShiftDuty
	if err := r.db.SelectContext(ctx, &duty, query, shiftID); err != nil {
		return nil, fmt.Errorf("list shift duty: %w", err)
	}
	return duty, nil
}

// ListDutyConflicts pairs frozen duty entries with UNAVAILABLE declarations
// on the shift date. Conflicts are surfaced for reassignment, never unbound
// automatically.
func (r *ShiftRepository) ListDutyConflicts(ctx context.Context, courseID int64, from, to time.Time) ([]models.DutyConflict, error) {
	query := `SELECT ns.id AS shift_id, ns.room_id, ns.date, sd.supervisor_id
FROM night_shifts ns
JOIN shift_duty sd ON sd.shift_id = ns.id
JOIN availabilities av ON av.supervisor_id = sd.supervisor_id AND av.date = ns.date AND av.kind = $4
WHERE ns.course_id = $1 AND ns.date >= $2 AND ns.date <= $3
ORDER BY ns.date, ns.room_id`
	var conflicts []models.DutyConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, courseID, from, to, models.AvailabilityUnavailable); err != nil {
		return nil, fmt.Errorf("list duty conflicts: %w", err)
	}
	return conflicts, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// SupervisorRepository handles persistence for supervisors and staff.
type SupervisorRepository struct {
	db *sqlx.DB
}

// NewSupervisorRepository constructs the repository.
func NewSupervisorRepository(db *sqlx.DB) *SupervisorRepository {
	return &SupervisorRepository{db: db}
}

const supervisorColumns = "id, course_id, user_id, full_name, kind, status, created_at, updated_at"

// Create inserts a supervisor.
func (r *SupervisorRepository) Create(ctx context.Context, sup *models.Supervisor) (*models.Supervisor, error) {
	now := time.Now().UTC()
	query := `INSERT INTO supervisors (course_id, user_id, full_name, kind, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
RETURNING ` + supervisorColumns
	var stored models.Supervisor
	if err := r.db.GetContext(ctx, &stored, query, sup.CourseID, sup.UserID, sup.FullName, sup.Kind, sup.Status, now); err != nil {
		return nil, fmt.Errorf("create supervisor: %w", err)
	}
	return &stored, nil
}

// FindByID returns a supervisor by ID.
func (r *SupervisorRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Supervisor, error) {
	if exec == nil {
		exec = r.db
	}
	query := "SELECT " + supervisorColumns + " FROM supervisors WHERE id = $1"
	var sup models.Supervisor
	if err := sqlx.GetContext(ctx, exec, &sup, query, id); err != nil {
		return nil, fmt.Errorf("find supervisor: %w", err)
	}
	return &sup, nil
}

// LockByIDs returns the supervisors matching the given IDs and takes row
// locks on them, so concurrent booking checks against the same supervisor
// serialize. Rows are locked in ID order to keep lock acquisition deadlock
// free.
func (r *SupervisorRepository) LockByIDs(ctx context.Context, exec sqlx.ExtContext, ids []int64) ([]models.Supervisor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if exec == nil {
		exec = r.db
	}
	query, args, err := sqlx.In("SELECT "+supervisorColumns+" FROM supervisors WHERE id IN (?) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, fmt.Errorf("build supervisor query: %w", err)
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	var sups []models.Supervisor
	if err := sqlx.SelectContext(ctx, exec, &sups, query, args...); err != nil {
		return nil, fmt.Errorf("lock supervisors by ids: %w", err)
	}
	return sups, nil
}

// ListByCourse returns supervisors of a course.
func (r *SupervisorRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Supervisor, error) {
	query := "SELECT " + supervisorColumns + " FROM supervisors WHERE course_id = $1 ORDER BY full_name"
	var sups []models.Supervisor
	if err := r.db.SelectContext(ctx, &sups, query, courseID); err != nil {
		return nil, fmt.Errorf("list supervisors: %w", err)
	}
	return sups, nil
}

// SetStatus toggles the active flag of a supervisor.
func (r *SupervisorRepository) SetStatus(ctx context.Context, id int64, status models.SupervisorStatus) error {
	query := `UPDATE supervisors SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set supervisor status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set supervisor status: no rows")
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// AvailabilityRepository stores sparse per-date availability declarations.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Declare upserts a declaration for (supervisor, date).
func (r *AvailabilityRepository) Declare(ctx context.Context, decl *models.Availability) (*models.Availability, error) {
	now := time.Now().UTC()
	query := `INSERT INTO availabilities (supervisor_id, date, kind, note, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (supervisor_id, date)
DO UPDATE SET kind = EXCLUDED.kind, note = EXCLUDED.note
RETURNING id, supervisor_id, date, kind, note, created_at`
	var stored models.Availability
	if err := r.db.GetContext(ctx, &stored, query, decl.SupervisorID, decl.Date, decl.Kind, decl.Note, now); err != nil {
		return nil, fmt.Errorf("declare availability: %w", err)
	}
	return &stored, nil
}

// Remove deletes a declaration.
func (r *AvailabilityRepository) Remove(ctx context.Context, supervisorID int64, date time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM availabilities WHERE supervisor_id = $1 AND date = $2", supervisorID, date); err != nil {
		return fmt.Errorf("remove availability: %w", err)
	}
	return nil
}

// ListBySupervisor returns declarations in a date range.
func (r *AvailabilityRepository) ListBySupervisor(ctx context.Context, supervisorID int64, from, to time.Time) ([]models.Availability, error) {
	query := `SELECT id, supervisor_id, date, kind, note, created_at
FROM availabilities
WHERE supervisor_id = $1 AND date >= $2 AND date <= $3
ORDER BY date`
	var decls []models.Availability
	if err := r.db.SelectContext(ctx, &decls, query, supervisorID, from, to); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return decls, nil
}

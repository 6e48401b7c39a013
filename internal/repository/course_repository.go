package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// Create inserts a course and returns the stored row.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	now := time.Now().UTC()
	query := `INSERT INTO courses (name, start_date, end_date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id, name, start_date, end_date, status, deleted_at, created_at, updated_at`
	var stored models.Course
	if err := r.db.GetContext(ctx, &stored, query, course.Name, course.StartDate, course.EndDate, course.Status, now); err != nil {
		return nil, fmt.Errorf("create course: %w", err)
	}
	return &stored, nil
}

// FindByID returns a course that has not been soft-deleted.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	query := `SELECT id, name, start_date, end_date, status, deleted_at, created_at, updated_at
FROM courses WHERE id = $1 AND deleted_at IS NULL`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, fmt.Errorf("find course: %w", err)
	}
	return &course, nil
}

// List returns non-deleted courses, newest first.
func (r *CourseRepository) List(ctx context.Context, page, pageSize int) ([]models.Course, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, name, start_date, end_date, status, deleted_at, created_at, updated_at
FROM courses WHERE deleted_at IS NULL
ORDER BY start_date DESC
LIMIT %d OFFSET %d`, pageSize, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses WHERE deleted_at IS NULL"); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// UpdateStatus moves the course along its lifecycle.
func (r *CourseRepository) UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error {
	query := `UPDATE courses SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update course status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update course status: no rows")
	}
	return nil
}

// SoftDelete marks the course deleted while keeping its history.
func (r *CourseRepository) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := `UPDATE courses SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("soft delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("soft delete course: no rows")
	}
	return nil
}

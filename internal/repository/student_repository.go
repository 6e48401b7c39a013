package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// StudentRepository handles persistence for students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = "id, course_id, group_id, full_name, gender, active, created_at, updated_at"

// Create inserts a student.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) (*models.Student, error) {
	now := time.Now().UTC()
	query := `INSERT INTO students (course_id, group_id, full_name, gender, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, $5, $5)
RETURNING ` + studentColumns
	var stored models.Student
	if err := r.db.GetContext(ctx, &stored, query, student.CourseID, student.GroupID, student.FullName, student.Gender, now); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return &stored, nil
}

// FindByID returns a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE id = $1"
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListByCourse returns students of a course, optionally scoped to a group.
func (r *StudentRepository) ListByCourse(ctx context.Context, courseID int64, groupID *int64) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM students WHERE course_id = $1"
	args := []interface{}{courseID}
	if groupID != nil {
		query += " AND group_id = $2"
		args = append(args, *groupID)
	}
	query += " ORDER BY full_name"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// SetGroup moves a student onto (or off) a group roster.
func (r *StudentRepository) SetGroup(ctx context.Context, studentID int64, groupID *int64) error {
	query := `UPDATE students SET group_id = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, studentID, groupID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set student group: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set student group: no rows")
	}
	return nil
}

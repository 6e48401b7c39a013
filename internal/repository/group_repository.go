package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// GroupRepository handles persistence for student groups and their rosters.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = "id, course_id, name, gender, created_at, updated_at"

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.StudentGroup) (*models.StudentGroup, error) {
	now := time.Now().UTC()
	query := `INSERT INTO student_groups (course_id, name, gender, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
RETURNING ` + groupColumns
	var stored models.StudentGroup
	if err := r.db.GetContext(ctx, &stored, query, group.CourseID, group.Name, group.Gender, now); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &stored, nil
}

// FindByID returns a group by ID.
func (r *GroupRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.StudentGroup, error) {
	if exec == nil {
		exec = r.db
	}
	query := "SELECT " + groupColumns + " FROM student_groups WHERE id = $1"
	var group models.StudentGroup
	if err := sqlx.GetContext(ctx, exec, &group, query, id); err != nil {
		return nil, fmt.Errorf("find group: %w", err)
	}
	return &group, nil
}

// ListByCourse returns all groups of a course.
func (r *GroupRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.StudentGroup, error) {
	query := "SELECT " + groupColumns + " FROM student_groups WHERE course_id = $1 ORDER BY name"
	var groups []models.StudentGroup
	if err := r.db.SelectContext(ctx, &groups, query, courseID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// CountStudents returns the number of active students on the group roster.
func (r *GroupRepository) CountStudents(ctx context.Context, exec sqlx.ExtContext, groupID int64) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	if err := sqlx.GetContext(ctx, exec, &count,
		"SELECT COUNT(*) FROM students WHERE group_id = $1 AND active = TRUE", groupID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// ListStudents returns the active roster of a group.
func (r *GroupRepository) ListStudents(ctx context.Context, exec sqlx.ExtContext, groupID int64) ([]models.Student, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT id, course_id, group_id, full_name, gender, active, created_at, updated_at
FROM students WHERE group_id = $1 AND active = TRUE ORDER BY full_name`
	var students []models.Student
	if err := sqlx.SelectContext(ctx, exec, &students, query, groupID); err != nil {
		return nil, fmt.Errorf("list group students: %w", err)
	}
	return students, nil
}

// GroupsForRoom returns groups of the room's current bindings together with
// their rosters' sizes, used for capacity checks and duty resolution.
func (r *GroupRepository) GroupsForRoom(ctx context.Context, exec sqlx.ExtContext, roomID int64) ([]models.StudentGroup, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT g.id, g.course_id, g.name, g.gender, g.created_at, g.updated_at
FROM student_groups g
JOIN group_room_bindings b ON b.group_id = g.id AND b.released_at IS NULL
WHERE b.room_id = $1
ORDER BY g.id`
	var groups []models.StudentGroup
	if err := sqlx.SelectContext(ctx, exec, &groups, query, roomID); err != nil {
		return nil, fmt.Errorf("groups for room: %w", err)
	}
	return groups, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campwerk/nightwatch-api/internal/models"
)

// RoomRepository handles persistence for rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = "id, course_id, name, gender, number_of_staff, created_at, updated_at"

// Create inserts a room.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) (*models.Room, error) {
	now := time.Now().UTC()
	query := `INSERT INTO rooms (course_id, name, gender, number_of_staff, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING ` + roomColumns
	var stored models.Room
	if err := r.db.GetContext(ctx, &stored, query, room.CourseID, room.Name, room.Gender, room.NumberOfStaff, now); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return &stored, nil
}

// FindByID returns a room by ID. The exec parameter allows reuse inside a
// transaction.
func (r *RoomRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Room, error) {
	if exec == nil {
		exec = r.db
	}
	query := "SELECT " + roomColumns + " FROM rooms WHERE id = $1"
	var room models.Room
	if err := sqlx.GetContext(ctx, exec, &room, query, id); err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	return &room, nil
}

// LockByID loads a room and takes its row lock. Concurrent capacity checks
// against the same room serialize on it, so two transactions cannot both
// validate occupancy against the same stale snapshot.
func (r *RoomRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Room, error) {
	if exec == nil {
		exec = r.db
	}
	query := "SELECT " + roomColumns + " FROM rooms WHERE id = $1 FOR UPDATE"
	var room models.Room
	if err := sqlx.GetContext(ctx, exec, &room, query, id); err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}
	return &room, nil
}

// ListByCourse returns all rooms belonging to a course.
func (r *RoomRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Room, error) {
	query := "SELECT " + roomColumns + " FROM rooms WHERE course_id = $1 ORDER BY name"
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, courseID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListBoundByCourse returns rooms that currently hold at least one group
// binding; only those rooms produce shift instances.
func (r *RoomRepository) ListBoundByCourse(ctx context.Context, courseID int64) ([]models.Room, error) {
	query := `SELECT DISTINCT r.id, r.course_id, r.name, r.gender, r.number_of_staff, r.created_at, r.updated_at
FROM rooms r
JOIN group_room_bindings b ON b.room_id = r.id AND b.released_at IS NULL
WHERE r.course_id = $1
ORDER BY r.id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, courseID); err != nil {
		return nil, fmt.Errorf("list bound rooms: %w", err)
	}
	return rooms, nil
}

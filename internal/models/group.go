package models

import "time"

// StudentGroup is a gendered group of students within a course.
type StudentGroup struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	Name      string    `db:"name" json:"name"`
	Gender    Gender    `db:"gender" json:"gender"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// GroupDetail extends the group with its active room binding and supervisor set.
type GroupDetail struct {
	StudentGroup
	RoomID        *int64  `json:"room_id,omitempty"`
	SupervisorIDs []int64 `json:"supervisor_ids"`
	StudentCount  int     `json:"student_count"`
}

// Student is a course participant on a group roster.
type Student struct {
	ID        int64     `db:"id" json:"id"`
	CourseID  int64     `db:"course_id" json:"course_id"`
	GroupID   *int64    `db:"group_id" json:"group_id,omitempty"`
	FullName  string    `db:"full_name" json:"full_name"`
	Gender    Gender    `db:"gender" json:"gender"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

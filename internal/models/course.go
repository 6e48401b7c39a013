package models

import "time"

// CourseStatus tracks where a course is in its lifecycle.
type CourseStatus string

const (
	CourseStatusRecruiting CourseStatus = "RECRUITING"
	CourseStatusRunning    CourseStatus = "RUNNING"
	CourseStatusFinished   CourseStatus = "FINISHED"
)

// Valid returns true when the status is a supported value.
func (s CourseStatus) Valid() bool {
	switch s {
	case CourseStatusRecruiting, CourseStatusRunning, CourseStatusFinished:
		return true
	default:
		return false
	}
}

// Course represents one residential course run. Courses are soft-deleted so
// report history stays intact.
type Course struct {
	ID        int64        `db:"id" json:"id"`
	Name      string       `db:"name" json:"name"`
	StartDate time.Time    `db:"start_date" json:"start_date"`
	EndDate   time.Time    `db:"end_date" json:"end_date"`
	Status    CourseStatus `db:"status" json:"status"`
	DeletedAt *time.Time   `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

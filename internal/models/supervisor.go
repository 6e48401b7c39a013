package models

import "time"

// SupervisorKind distinguishes volunteer supervisors from paid staff.
type SupervisorKind string

const (
	KindSupervisor SupervisorKind = "SUPERVISOR"
	KindStaff      SupervisorKind = "STAFF"
)

// Valid returns true when the kind is a supported value.
func (k SupervisorKind) Valid() bool {
	return k == KindSupervisor || k == KindStaff
}

// SupervisorStatus marks whether a supervisor may receive new bindings.
type SupervisorStatus string

const (
	SupervisorActive   SupervisorStatus = "ACTIVE"
	SupervisorInactive SupervisorStatus = "INACTIVE"
)

// Supervisor is an adult volunteer or staff member attached to a course.
type Supervisor struct {
	ID        int64            `db:"id" json:"id"`
	CourseID  int64            `db:"course_id" json:"course_id"`
	UserID    *int64           `db:"user_id" json:"user_id,omitempty"`
	FullName  string           `db:"full_name" json:"full_name"`
	Kind      SupervisorKind   `db:"kind" json:"kind"`
	Status    SupervisorStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AvailabilityKind tells whether a declared date is free or blocked.
type AvailabilityKind string

const (
	AvailabilityFree        AvailabilityKind = "FREE"
	AvailabilityUnavailable AvailabilityKind = "UNAVAILABLE"
)

// Valid returns true when the kind is a supported value.
func (k AvailabilityKind) Valid() bool {
	return k == AvailabilityFree || k == AvailabilityUnavailable
}

// Availability is a sparse per-date declaration collected from supervisors.
type Availability struct {
	ID           int64            `db:"id" json:"id"`
	SupervisorID int64            `db:"supervisor_id" json:"supervisor_id"`
	Date         time.Time        `db:"date" json:"date"`
	Kind         AvailabilityKind `db:"kind" json:"kind"`
	Note         *string          `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

package models

import "time"

// NightShift is one night of supervision duty for a room, keyed by
// (room_id, date). Shifts are materialized on demand, never user-created.
type NightShift struct {
	ID             int64     `db:"id" json:"id"`
	CourseID       int64     `db:"course_id" json:"course_id"`
	RoomID         int64     `db:"room_id" json:"room_id"`
	Date           time.Time `db:"date" json:"date"`
	MaterializedAt time.Time `db:"materialized_at" json:"materialized_at"`
}

// ShiftDuty is a supervisor frozen onto a shift at duty-resolution time.
type ShiftDuty struct {
	ShiftID      int64          `db:"shift_id" json:"shift_id"`
	SupervisorID int64          `db:"supervisor_id" json:"supervisor_id"`
	Kind         SupervisorKind `db:"kind" json:"kind"`
	ResolvedAt   time.Time      `db:"resolved_at" json:"resolved_at"`
}

// ShiftDetail is a shift with its duty roster and derived assignment flags.
// The flags reflect current bindings at read time; they are never persisted.
type ShiftDetail struct {
	NightShift
	Duty                 []ShiftDuty `json:"duty"`
	IsSupervisorAssigned bool        `json:"is_supervisor_assigned"`
	IsStaffAssigned      bool        `json:"is_staff_assigned"`
}

// MaterializationItem is the per-(room, date) outcome of a bulk
// materialization run.
type MaterializationItem struct {
	RoomID  int64     `json:"room_id"`
	Date    time.Time `json:"date"`
	Created bool      `json:"created"`
	Error   string    `json:"error,omitempty"`
}

// MaterializationResult summarises a MaterializeShifts invocation.
type MaterializationResult struct {
	Created int                   `json:"created"`
	Skipped int                   `json:"skipped"`
	Items   []MaterializationItem `json:"items"`
}

// DutyConflict pairs a frozen shift duty with an unavailability declaration
// covering the same date. Conflicts are surfaced for reassignment, never
// auto-unbound.
type DutyConflict struct {
	ShiftID      int64     `db:"shift_id" json:"shift_id"`
	RoomID       int64     `db:"room_id" json:"room_id"`
	Date         time.Time `db:"date" json:"date"`
	SupervisorID int64     `db:"supervisor_id" json:"supervisor_id"`
}

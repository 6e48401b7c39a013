package models

import "time"

// GroupRoomBinding assigns a group to a room. At most one unreleased binding
// exists per group; history is kept via released_at.
type GroupRoomBinding struct {
	ID         int64      `db:"id" json:"id"`
	GroupID    int64      `db:"group_id" json:"group_id"`
	RoomID     int64      `db:"room_id" json:"room_id"`
	BoundAt    time.Time  `db:"bound_at" json:"bound_at"`
	ReleasedAt *time.Time `db:"released_at" json:"released_at,omitempty"`
}

// SupervisorAssignment attaches a supervisor to a group over an effective
// date range. Overlapping unreleased assignments to different groups on the
// same date are forbidden.
type SupervisorAssignment struct {
	ID            int64      `db:"id" json:"id"`
	SupervisorID  int64      `db:"supervisor_id" json:"supervisor_id"`
	GroupID       int64      `db:"group_id" json:"group_id"`
	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   time.Time  `db:"effective_to" json:"effective_to"`
	ReleasedAt    *time.Time `db:"released_at" json:"released_at,omitempty"`
}

// DutyCandidate is a supervisor currently bound to a room through its
// group bindings, eligible to be frozen onto a shift.
type DutyCandidate struct {
	SupervisorID int64          `db:"supervisor_id" json:"supervisor_id"`
	Kind         SupervisorKind `db:"kind" json:"kind"`
}

// BookingConflict describes why a supervisor assignment was refused. It is
// attached to CONFLICTING_BOOKING responses so the caller can reconcile.
type BookingConflict struct {
	SupervisorID  int64     `json:"supervisor_id"`
	GroupID       int64     `json:"group_id"`
	EffectiveFrom time.Time `json:"effective_from"`
	EffectiveTo   time.Time `json:"effective_to"`
}

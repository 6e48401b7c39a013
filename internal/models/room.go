package models

import "time"

// Gender constrains room and group occupancy.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// Valid returns true when the gender is a supported value.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Room is a physical room supervised overnight. All occupants must match the
// room's gender; NumberOfStaff bounds the derived student capacity.
type Room struct {
	ID            int64     `db:"id" json:"id"`
	CourseID      int64     `db:"course_id" json:"course_id"`
	Name          string    `db:"name" json:"name"`
	Gender        Gender    `db:"gender" json:"gender"`
	NumberOfStaff int       `db:"number_of_staff" json:"number_of_staff"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Capacity derives the maximum student count for the room.
func (r Room) Capacity(studentsPerStaff int) int {
	if studentsPerStaff <= 0 {
		studentsPerStaff = 1
	}
	return r.NumberOfStaff * studentsPerStaff
}

// RoomOccupant summarises one group currently bound to a room.
type RoomOccupant struct {
	GroupID      int64  `db:"group_id" json:"group_id"`
	GroupName    string `db:"group_name" json:"group_name"`
	Gender       Gender `db:"gender" json:"gender"`
	StudentCount int    `db:"student_count" json:"student_count"`
}

// RoomSnapshot is the room plus its current occupancy, returned by the
// assignment engine after a successful rebind.
type RoomSnapshot struct {
	Room
	Capacity  int            `json:"capacity"`
	Occupied  int            `json:"occupied"`
	Occupants []RoomOccupant `json:"occupants"`
}

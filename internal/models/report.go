package models

import "time"

// ReportType categorises nightly reports.
type ReportType string

const (
	ReportTypeAttendance ReportType = "ATTENDANCE"
	ReportTypeIncident   ReportType = "INCIDENT"
	ReportTypeGeneral    ReportType = "GENERAL"
)

// Valid returns true when the type is a supported value.
func (t ReportType) Valid() bool {
	switch t {
	case ReportTypeAttendance, ReportTypeIncident, ReportTypeGeneral:
		return true
	default:
		return false
	}
}

// ReportStatus is the report lifecycle state. A rejected report returns to
// DRAFT with rejected_at recorded; REVIEWED is terminal.
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "DRAFT"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusReviewed  ReportStatus = "REVIEWED"
)

// StudentReportStatus is a per-student attendance mark.
type StudentReportStatus string

const (
	StudentReportPending StudentReportStatus = "PENDING"
	StudentReportPresent StudentReportStatus = "PRESENT"
	StudentReportAbsent  StudentReportStatus = "ABSENT"
	StudentReportExcused StudentReportStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s StudentReportStatus) Valid() bool {
	switch s {
	case StudentReportPending, StudentReportPresent, StudentReportAbsent, StudentReportExcused:
		return true
	default:
		return false
	}
}

// ReviewOutcome is a manager's decision on a submitted report.
type ReviewOutcome string

const (
	ReviewApproved ReviewOutcome = "APPROVED"
	ReviewRejected ReviewOutcome = "REJECTED"
)

// Valid returns true when the outcome is a supported value.
func (o ReviewOutcome) Valid() bool {
	return o == ReviewApproved || o == ReviewRejected
}

// Report is the nightly report for one shift instance. Group, room and shift
// references survive binding removal; derived flags simply recompute.
type Report struct {
	ID          int64        `db:"id" json:"id"`
	CourseID    int64        `db:"course_id" json:"course_id"`
	GroupID     *int64       `db:"group_id" json:"group_id,omitempty"`
	RoomID      *int64       `db:"room_id" json:"room_id,omitempty"`
	ShiftID     *int64       `db:"shift_id" json:"shift_id,omitempty"`
	ReportDate  time.Time    `db:"report_date" json:"report_date"`
	Type        ReportType   `db:"type" json:"type"`
	Status      ReportStatus `db:"status" json:"status"`
	Comment     *string      `db:"comment" json:"comment,omitempty"`
	SubmittedBy *int64       `db:"submitted_by" json:"submitted_by,omitempty"`
	SubmittedAt *time.Time   `db:"submitted_at" json:"submitted_at,omitempty"`
	ReviewedBy  *int64       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time   `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectedAt  *time.Time   `db:"rejected_at" json:"rejected_at,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// StudentReport is the per-student attendance mark under a report. The set of
// students is frozen at report creation.
type StudentReport struct {
	ID        int64               `db:"id" json:"id"`
	ReportID  int64               `db:"report_id" json:"report_id"`
	StudentID int64               `db:"student_id" json:"student_id"`
	Status    StudentReportStatus `db:"status" json:"status"`
	Comment   *string             `db:"comment" json:"comment,omitempty"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// StudentReportRow adds student metadata for detail views and exports.
type StudentReportRow struct {
	StudentReport
	StudentName string `db:"student_name" json:"student_name"`
}

// ReportDetail is a report with its student rows and derived flags computed
// from current bindings and the clock at read time.
type ReportDetail struct {
	Report
	Students             []StudentReportRow `json:"students"`
	IsEditable           bool               `json:"is_editable"`
	IsSupervisorAssigned bool               `json:"is_supervisor_assigned"`
	IsStaffAssigned      bool               `json:"is_staff_assigned"`
}

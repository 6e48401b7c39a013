package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	"github.com/campwerk/nightwatch-api/pkg/database"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type reportStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, report *models.Report) (*models.Report, error)
	InsertStudentReports(ctx context.Context, exec sqlx.ExtContext, reportID int64, studentIDs []int64) error
	FindByID(ctx context.Context, id int64) (*models.Report, error)
	FindByShiftAndType(ctx context.Context, shiftID int64, reportType models.ReportType) (*models.Report, error)
	ListStudentRows(ctx context.Context, reportID int64) ([]models.StudentReportRow, error)
	FindStudentReport(ctx context.Context, reportID, studentID int64) (*models.StudentReport, error)
	UpdateStudentReport(ctx context.Context, id int64, status models.StudentReportStatus, comment *string) (*models.StudentReport, error)
	CountPending(ctx context.Context, reportID int64) (int, error)
	ListPendingStudents(ctx context.Context, reportID int64) ([]models.StudentReportRow, error)
	MarkSubmitted(ctx context.Context, id, submittedBy int64) (*models.Report, error)
	MarkReviewed(ctx context.Context, id, reviewedBy int64) (*models.Report, error)
	MarkRejected(ctx context.Context, id, reviewedBy int64) (*models.Report, error)
	ListByCourse(ctx context.Context, courseID int64, status *models.ReportStatus, from, to *time.Time, page, pageSize int) ([]models.Report, int, error)
}

type reportShiftReader interface {
	FindByID(ctx context.Context, id int64) (*models.NightShift, error)
	ListDuty(ctx context.Context, shiftID int64) ([]models.ShiftDuty, error)
}

type reportGroupReader interface {
	GroupsForRoom(ctx context.Context, exec sqlx.ExtContext, roomID int64) ([]models.StudentGroup, error)
	ListStudents(ctx context.Context, exec sqlx.ExtContext, groupID int64) ([]models.Student, error)
}

type reportMetrics interface {
	ObserveReportTransition(transition string)
}

// ReportService runs the report state machine: Draft, Submitted, Reviewed,
// with a Rejected side path back to Draft. Derived flags are recomputed from
// current bindings and the clock on every read; only status transitions are
// persisted. Reviewed reports are immutable history.
type ReportService struct {
	reports   reportStore
	shifts    reportShiftReader
	groups    reportGroupReader
	bindings  dutyResolver
	tx        txProvider
	events    eventEmitter
	metrics   reportMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.ReportsConfig

	// now is swappable for edit-window tests.
	now func() time.Time
}

// NewReportService wires the state machine.
func NewReportService(
	reports reportStore,
	shifts reportShiftReader,
	groups reportGroupReader,
	bindings dutyResolver,
	tx txProvider,
	events eventEmitter,
	metrics reportMetrics,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg config.ReportsConfig,
) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.EditWindow <= 0 {
		cfg.EditWindow = 48 * time.Hour
	}
	svc := &ReportService{
		reports:   reports,
		shifts:    shifts,
		groups:    groups,
		bindings:  bindings,
		tx:        tx,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	svc.validator.RegisterValidation("report_type", func(fl validator.FieldLevel) bool {
		return models.ReportType(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("attendance_mark", func(fl validator.FieldLevel) bool {
		status := models.StudentReportStatus(strings.ToUpper(fl.Field().String()))
		return status.Valid() && status != models.StudentReportPending
	})
	svc.validator.RegisterValidation("review_outcome", func(fl validator.FieldLevel) bool {
		return models.ReviewOutcome(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// CreateReportRequest creates the report for a shift instance.
type CreateReportRequest struct {
	ShiftID int64  `json:"shift_id" validate:"required,gt=0"`
	Type    string `json:"type" validate:"required,report_type"`
}

// MarkAttendanceRequest records one student's mark.
type MarkAttendanceRequest struct {
	StudentID int64   `json:"student_id" validate:"required,gt=0"`
	Status    string  `json:"status" validate:"required,attendance_mark"`
	Comment   *string `json:"comment"`
}

// ReviewRequest carries a manager's decision.
type ReviewRequest struct {
	Outcome string  `json:"outcome" validate:"required,review_outcome"`
	Comment *string `json:"comment"`
}

// Create opens a DRAFT report for a shift and freezes one PENDING row per
// student currently in the groups bound to the shift's room. A second report
// of the same type for the shift fails with DUPLICATE_SHIFT.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest) (*models.ReportDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	reportType := models.ReportType(strings.ToUpper(req.Type))

	shift, err := s.shifts.FindByID(ctx, req.ShiftID)
	if err != nil {
		return nil, notFoundOrInternal(err, "shift not found")
	}

	existing, err := s.reports.FindByShiftAndType(ctx, shift.ID, reportType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing report")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateShift,
			fmt.Sprintf("%s report %d already exists for this shift", strings.ToLower(string(reportType)), existing.ID))
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	groups, err := s.groups.GroupsForRoom(ctx, tx, shift.RoomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read room groups")
	}
	var studentIDs []int64
	for _, group := range groups {
		students, err := s.groups.ListStudents(ctx, tx, group.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read group roster")
		}
		for _, student := range students {
			studentIDs = append(studentIDs, student.ID)
		}
	}

	report := &models.Report{
		CourseID:   shift.CourseID,
		RoomID:     &shift.RoomID,
		ShiftID:    &shift.ID,
		ReportDate: shift.Date,
		Type:       reportType,
	}
	if len(groups) == 1 {
		report.GroupID = &groups[0].ID
	}

	stored, err := s.reports.Create(ctx, tx, report)
	if err != nil {
		// The duplicate pre-check runs outside this transaction, so a
		// concurrent creator can still reach the (shift_id, type) unique
		// index. The loser gets the same conflict as the pre-check.
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateShift,
				fmt.Sprintf("%s report already exists for this shift", strings.ToLower(string(reportType))))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}
	if err := s.reports.InsertStudentReports(ctx, tx, stored.ID, studentIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to freeze student list")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit report")
	}
	committed = true
	s.observe("create")

	return s.detail(ctx, stored)
}

// MarkAttendance records a mark for one student of the report's frozen list.
// Marks for different students are independent and commute.
func (s *ReportService) MarkAttendance(ctx context.Context, reportID int64, req MarkAttendanceRequest) (*models.StudentReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOrInternal(err, "report not found")
	}
	if !editableAt(report, s.now(), s.cfg) {
		return nil, s.notEditable(report)
	}

	row, err := s.reports.FindStudentReport(ctx, reportID, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read mark")
	}
	if row == nil {
		return nil, appErrors.Clone(appErrors.ErrUnknownStudent,
			fmt.Sprintf("student %d is not on this report", req.StudentID))
	}

	updated, err := s.reports.UpdateStudentReport(ctx, row.ID, models.StudentReportStatus(strings.ToUpper(req.Status)), req.Comment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store mark")
	}
	return updated, nil
}

// Submit moves DRAFT to SUBMITTED. Only a caller on the shift's frozen duty
// roster (or an admin) may submit. Attendance reports must have no PENDING
// marks; incident and general reports carry no such requirement.
func (s *ReportService) Submit(ctx context.Context, reportID int64, caller *models.TokenClaims) (*models.Report, error) {
	if caller == nil {
		return nil, appErrors.ErrUnauthorized
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOrInternal(err, "report not found")
	}
	if report.Status != models.ReportStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrNotEditable, "only draft reports can be submitted")
	}
	if !editableAt(report, s.now(), s.cfg) {
		return nil, s.notEditable(report)
	}

	if err := s.authorizeSubmitter(ctx, report, caller); err != nil {
		return nil, err
	}

	if report.Type == models.ReportTypeAttendance {
		count, err := s.reports.CountPending(ctx, reportID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check marks")
		}
		if count > 0 {
			pending, err := s.reports.ListPendingStudents(ctx, reportID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check marks")
			}
			names := make([]string, 0, len(pending))
			for _, p := range pending {
				names = append(names, p.StudentName)
			}
			return nil, appErrors.Clone(appErrors.ErrIncompleteAttendance,
				fmt.Sprintf("unmarked students: %s", strings.Join(names, ", ")))
		}
	}

	submitted, err := s.reports.MarkSubmitted(ctx, reportID, caller.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit report")
	}
	s.observe("submit")
	s.emit(models.EventReportSubmitted, map[string]interface{}{
		"report_id":    submitted.ID,
		"course_id":    submitted.CourseID,
		"submitted_by": caller.UserID,
	})
	return submitted, nil
}

// Review moves SUBMITTED to the terminal REVIEWED state, or back to DRAFT
// when rejected. Rejected reports keep their marks as the starting point for
// correction. Only reviewer-class roles may call this.
func (s *ReportService) Review(ctx context.Context, reportID int64, req ReviewRequest, caller *models.TokenClaims) (*models.Report, error) {
	if caller == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !caller.Role.CanReview() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "role may not review reports")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOrInternal(err, "report not found")
	}
	if report.Status != models.ReportStatusSubmitted {
		return nil, appErrors.Clone(appErrors.ErrNotEditable, "only submitted reports can be reviewed")
	}

	var reviewed *models.Report
	outcome := models.ReviewOutcome(strings.ToUpper(req.Outcome))
	switch outcome {
	case models.ReviewApproved:
		reviewed, err = s.reports.MarkReviewed(ctx, reportID, caller.UserID)
		s.observe("review_approved")
	case models.ReviewRejected:
		reviewed, err = s.reports.MarkRejected(ctx, reportID, caller.UserID)
		s.observe("review_rejected")
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store review")
	}

	s.emit(models.EventReportReviewed, map[string]interface{}{
		"report_id":   reviewed.ID,
		"course_id":   reviewed.CourseID,
		"outcome":     string(outcome),
		"reviewed_by": caller.UserID,
	})
	return reviewed, nil
}

// Get returns the report with its student rows and flags derived from
// current state.
func (s *ReportService) Get(ctx context.Context, reportID int64) (*models.ReportDetail, error) {
	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, notFoundOrInternal(err, "report not found")
	}
	return s.detail(ctx, report)
}

// List returns a course's reports.
func (s *ReportService) List(ctx context.Context, courseID int64, status *models.ReportStatus, from, to *time.Time, page, pageSize int) ([]models.Report, *models.Pagination, error) {
	reports, total, err := s.reports.ListByCourse(ctx, courseID, status, from, to, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return reports, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *ReportService) authorizeSubmitter(ctx context.Context, report *models.Report, caller *models.TokenClaims) error {
	if caller.Role == models.RoleAdmin {
		return nil
	}
	if report.ShiftID == nil || caller.SupervisorID == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "caller is not on duty for this shift")
	}
	duty, err := s.shifts.ListDuty(ctx, *report.ShiftID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read duty roster")
	}
	if len(duty) == 0 {
		return appErrors.Clone(appErrors.ErrUnauthorized, "no supervisor is bound to this shift")
	}
	for _, d := range duty {
		if d.SupervisorID == *caller.SupervisorID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrUnauthorized, "caller is not on duty for this shift")
}

func (s *ReportService) detail(ctx context.Context, report *models.Report) (*models.ReportDetail, error) {
	rows, err := s.reports.ListStudentRows(ctx, report.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marks")
	}
	detail := &models.ReportDetail{Report: *report, Students: rows}
	detail.IsEditable = editableAt(report, s.now(), s.cfg)
	if report.RoomID != nil {
		candidates, err := s.bindings.DutyCandidatesForRoom(ctx, nil, *report.RoomID, report.ReportDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read bindings")
		}
		detail.IsSupervisorAssigned, detail.IsStaffAssigned = assignmentFlags(candidates)
	}
	return detail, nil
}

func (s *ReportService) notEditable(report *models.Report) *appErrors.Error {
	if report.Status == models.ReportStatusReviewed {
		return appErrors.Clone(appErrors.ErrNotEditable, "report is reviewed and immutable")
	}
	return appErrors.Clone(appErrors.ErrNotEditable, "edit window has elapsed")
}

func (s *ReportService) emit(kind models.EventKind, payload map[string]interface{}) {
	if s.events != nil {
		s.events.Emit(kind, payload)
	}
}

func (s *ReportService) observe(transition string) {
	if s.metrics != nil {
		s.metrics.ObserveReportTransition(transition)
	}
}

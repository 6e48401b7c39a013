package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campwerk/nightwatch-api/internal/models"
	"github.com/campwerk/nightwatch-api/pkg/config"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type stubReportStore struct {
	reports      map[int64]*models.Report
	rows         map[int64][]models.StudentReportRow
	frozen       []int64
	nextID       int64
	nextRowID    int64
	rejectedAt   time.Time
	submittedCnt int
	createErr    error
}

func newStubReportStore() *stubReportStore {
	return &stubReportStore{
		reports: make(map[int64]*models.Report),
		rows:    make(map[int64][]models.StudentReportRow),
	}
}

func (s *stubReportStore) Create(_ context.Context, _ sqlx.ExtContext, report *models.Report) (*models.Report, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	stored := *report
	stored.ID = s.nextID
	stored.Status = models.ReportStatusDraft
	s.reports[stored.ID] = &stored
	return &stored, nil
}

func (s *stubReportStore) InsertStudentReports(_ context.Context, _ sqlx.ExtContext, reportID int64, studentIDs []int64) error {
	s.frozen = studentIDs
	for _, id := range studentIDs {
		s.nextRowID++
		s.rows[reportID] = append(s.rows[reportID], models.StudentReportRow{
			StudentReport: models.StudentReport{ID: s.nextRowID, ReportID: reportID, StudentID: id, Status: models.StudentReportPending},
		})
	}
	return nil
}

func (s *stubReportStore) FindByID(_ context.Context, id int64) (*models.Report, error) {
	report, ok := s.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return report, nil
}

func (s *stubReportStore) FindByShiftAndType(_ context.Context, shiftID int64, reportType models.ReportType) (*models.Report, error) {
	for _, report := range s.reports {
		if report.ShiftID != nil && *report.ShiftID == shiftID && report.Type == reportType {
			return report, nil
		}
	}
	return nil, nil
}

func (s *stubReportStore) ListStudentRows(_ context.Context, reportID int64) ([]models.StudentReportRow, error) {
	return s.rows[reportID], nil
}

func (s *stubReportStore) FindStudentReport(_ context.Context, reportID, studentID int64) (*models.StudentReport, error) {
	for _, row := range s.rows[reportID] {
		if row.StudentID == studentID {
			r := row.StudentReport
			return &r, nil
		}
	}
	return nil, nil
}

func (s *stubReportStore) UpdateStudentReport(_ context.Context, id int64, status models.StudentReportStatus, comment *string) (*models.StudentReport, error) {
	for reportID, rows := range s.rows {
		for i, row := range rows {
			if row.ID == id {
				s.rows[reportID][i].Status = status
				s.rows[reportID][i].Comment = comment
				r := s.rows[reportID][i].StudentReport
				return &r, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubReportStore) CountPending(_ context.Context, reportID int64) (int, error) {
	count := 0
	for _, row := range s.rows[reportID] {
		if row.Status == models.StudentReportPending {
			count++
		}
	}
	return count, nil
}

func (s *stubReportStore) ListPendingStudents(_ context.Context, reportID int64) ([]models.StudentReportRow, error) {
	var out []models.StudentReportRow
	for _, row := range s.rows[reportID] {
		if row.Status == models.StudentReportPending {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubReportStore) MarkSubmitted(_ context.Context, id, submittedBy int64) (*models.Report, error) {
	report := s.reports[id]
	now := time.Now().UTC()
	report.Status = models.ReportStatusSubmitted
	report.SubmittedBy = &submittedBy
	report.SubmittedAt = &now
	s.submittedCnt++
	return report, nil
}

func (s *stubReportStore) MarkReviewed(_ context.Context, id, reviewedBy int64) (*models.Report, error) {
	report := s.reports[id]
	now := time.Now().UTC()
	report.Status = models.ReportStatusReviewed
	report.ReviewedBy = &reviewedBy
	report.ReviewedAt = &now
	return report, nil
}

func (s *stubReportStore) MarkRejected(_ context.Context, id, reviewedBy int64) (*models.Report, error) {
	report := s.reports[id]
	rejectedAt := s.rejectedAt
	if rejectedAt.IsZero() {
		rejectedAt = time.Now().UTC()
	}
	report.Status = models.ReportStatusDraft
	report.ReviewedBy = &reviewedBy
	report.RejectedAt = &rejectedAt
	report.SubmittedBy = nil
	report.SubmittedAt = nil
	return report, nil
}

func (s *stubReportStore) ListByCourse(_ context.Context, _ int64, _ *models.ReportStatus, _, _ *time.Time, _, _ int) ([]models.Report, int, error) {
	var out []models.Report
	for _, report := range s.reports {
		out = append(out, *report)
	}
	return out, len(out), nil
}

type stubShiftReader struct {
	shifts map[int64]*models.NightShift
	duty   map[int64][]models.ShiftDuty
}

func (s *stubShiftReader) FindByID(_ context.Context, id int64) (*models.NightShift, error) {
	shift, ok := s.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func (s *stubShiftReader) ListDuty(_ context.Context, shiftID int64) ([]models.ShiftDuty, error) {
	return s.duty[shiftID], nil
}

type stubReportGroupReader struct {
	groupsByRoom map[int64][]models.StudentGroup
	students     map[int64][]models.Student
}

func (s *stubReportGroupReader) GroupsForRoom(_ context.Context, _ sqlx.ExtContext, roomID int64) ([]models.StudentGroup, error) {
	return s.groupsByRoom[roomID], nil
}

func (s *stubReportGroupReader) ListStudents(_ context.Context, _ sqlx.ExtContext, groupID int64) ([]models.Student, error) {
	return s.students[groupID], nil
}

type reportFixture struct {
	svc    *ReportService
	store  *stubReportStore
	shifts *stubShiftReader
}

func newReportFixture(t *testing.T, cfg config.ReportsConfig) *reportFixture {
	t.Helper()
	store := newStubReportStore()
	shifts := &stubShiftReader{
		shifts: map[int64]*models.NightShift{
			1: {ID: 1, CourseID: 1, RoomID: 5, Date: date("2026-07-01")},
		},
		duty: map[int64][]models.ShiftDuty{
			1: {{ShiftID: 1, SupervisorID: 10, Kind: models.KindSupervisor}},
		},
	}
	groups := &stubReportGroupReader{
		groupsByRoom: map[int64][]models.StudentGroup{
			5: {{ID: 2, Name: "Eagles", Gender: models.GenderMale}},
		},
		students: map[int64][]models.Student{
			2: {{ID: 100, FullName: "Jo Miles"}, {ID: 101, FullName: "Pat Quinn"}},
		},
	}
	db, mock := newTxDB(t)
	mock.MatchExpectationsInOrder(false)
	// Report creation opens one transaction; tests that never call Create
	// simply leave the expectation unused.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectRollback()

	svc := NewReportService(store, shifts, groups, &stubDutyResolver{}, db, nil, nil, nil, nil, cfg)
	return &reportFixture{svc: svc, store: store, shifts: shifts}
}

func supervisorCaller(supervisorID int64) *models.TokenClaims {
	return &models.TokenClaims{UserID: 7, Role: models.RoleSupervisor, SupervisorID: &supervisorID}
}

func TestCreateReportFreezesStudentList(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})

	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, detail.Status)
	assert.Equal(t, []int64{100, 101}, f.store.frozen)
	require.NotNil(t, detail.GroupID)
	assert.Equal(t, int64(2), *detail.GroupID)
	assert.Len(t, detail.Students, 2)
	for _, row := range detail.Students {
		assert.Equal(t, models.StudentReportPending, row.Status)
	}
}

func TestCreateReportDuplicateShift(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})

	_, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateShift.Code, appErrors.FromError(err).Code)
}

func TestCreateReportConcurrentDuplicateHitsUniqueIndex(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})

	// The duplicate pre-check sees nothing, but a concurrent creator commits
	// first and this insert lands on the (shift_id, type) unique index. The
	// caller still gets a duplicate conflict, not an internal error.
	f.store.createErr = &pq.Error{Code: "23505", Constraint: "reports_shift_id_type_key"}

	_, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateShift.Code, appErrors.FromError(err).Code)
}

func TestCreateReportSecondTypeAllowed(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})

	_, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	// An incident report for the same shift is a different type, not a duplicate.
	db, mock := newTxDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f.svc.tx = db

	_, err = f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "INCIDENT"})
	require.NoError(t, err)
}

func TestMarkAttendanceUnknownStudent(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 999, Status: "PRESENT"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnknownStudent.Code, appErrors.FromError(err).Code)
}

func TestMarkAttendanceRejectsPendingAsMark(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 100, Status: "PENDING"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMarkAttendanceAfterWindowNotEditable(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	// Still DRAFT, but the clock has left the window.
	f.svc.now = func() time.Time { return date("2026-07-04") }

	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 100, Status: "PRESENT"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
}

func TestSubmitBlockedByPendingMarks(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 100, Status: "PRESENT"})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrIncompleteAttendance.Code, appErr.Code)
	assert.Equal(t, 0, f.store.submittedCnt)
}

func TestSubmitCompleteAttendance(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)

	for _, studentID := range []int64{100, 101} {
		_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: studentID, Status: "PRESENT"})
		require.NoError(t, err)
	}

	submitted, err := f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, submitted.Status)
}

func TestSubmitZeroStudentReportIsTrivial(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	f.svc.groups = &stubReportGroupReader{
		groupsByRoom: map[int64][]models.StudentGroup{5: {{ID: 2}}},
		students:     map[int64][]models.Student{},
	}

	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)
	assert.Empty(t, detail.Students)

	submitted, err := f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, submitted.Status)
}

func TestSubmitRequiresDutyMembership(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(55))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestSubmitAdminBypassesDutyCheck(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)

	admin := &models.TokenClaims{UserID: 1, Role: models.RoleAdmin}
	submitted, err := f.svc.Submit(context.Background(), detail.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusSubmitted, submitted.Status)
}

func TestSubmitWithEmptyDutyRoster(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	f.shifts.duty[1] = nil
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "no supervisor is bound")
}

func TestReviewApproveIsTerminal(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.NoError(t, err)

	manager := &models.TokenClaims{UserID: 2, Role: models.RoleManager}
	reviewed, err := f.svc.Review(context.Background(), detail.ID, ReviewRequest{Outcome: "APPROVED"}, manager)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusReviewed, reviewed.Status)

	// Reviewed reports are immutable history.
	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 100, Status: "PRESENT"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Review(context.Background(), detail.ID, ReviewRequest{Outcome: "APPROVED"}, manager)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
}

func TestReviewRejectReturnsToDraft(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour, RejectionExtendsWindow: true})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "ATTENDANCE"})
	require.NoError(t, err)
	for _, studentID := range []int64{100, 101} {
		_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: studentID, Status: "PRESENT"})
		require.NoError(t, err)
	}
	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.NoError(t, err)

	f.store.rejectedAt = date("2026-07-05")
	manager := &models.TokenClaims{UserID: 2, Role: models.RoleManager}
	rejected, err := f.svc.Review(context.Background(), detail.ID, ReviewRequest{Outcome: "REJECTED"}, manager)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, rejected.Status)
	assert.Nil(t, rejected.SubmittedAt)
	require.NotNil(t, rejected.RejectedAt)

	// The marks survive rejection as the starting point for correction, and
	// the edit window re-anchors at the rejection timestamp.
	f.svc.now = func() time.Time { return date("2026-07-06") }
	_, err = f.svc.MarkAttendance(context.Background(), detail.ID, MarkAttendanceRequest{StudentID: 100, Status: "ABSENT"})
	require.NoError(t, err)
}

func TestReviewForbiddenForSupervisors(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)
	_, err = f.svc.Submit(context.Background(), detail.ID, supervisorCaller(10))
	require.NoError(t, err)

	_, err = f.svc.Review(context.Background(), detail.ID, ReviewRequest{Outcome: "APPROVED"}, supervisorCaller(10))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestReviewRequiresSubmittedStatus(t *testing.T) {
	f := newReportFixture(t, config.ReportsConfig{EditWindow: 48 * time.Hour})
	f.svc.now = func() time.Time { return date("2026-07-02") }
	detail, err := f.svc.Create(context.Background(), CreateReportRequest{ShiftID: 1, Type: "GENERAL"})
	require.NoError(t, err)

	manager := &models.TokenClaims{UserID: 2, Role: models.RoleManager}
	_, err = f.svc.Review(context.Background(), detail.ID, ReviewRequest{Outcome: "APPROVED"}, manager)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
}

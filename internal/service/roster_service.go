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
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
)

type rosterCourseStore interface {
	Create(ctx context.Context, course *models.Course) (*models.Course, error)
	FindByID(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context, page, pageSize int) ([]models.Course, int, error)
	UpdateStatus(ctx context.Context, id int64, status models.CourseStatus) error
	SoftDelete(ctx context.Context, id int64) error
}

type rosterRoomStore interface {
	assignmentRoomReader
	Create(ctx context.Context, room *models.Room) (*models.Room, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Room, error)
}

type rosterGroupStore interface {
	assignmentGroupReader
	Create(ctx context.Context, group *models.StudentGroup) (*models.StudentGroup, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.StudentGroup, error)
}

type rosterStudentStore interface {
	Create(ctx context.Context, student *models.Student) (*models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	ListByCourse(ctx context.Context, courseID int64, groupID *int64) ([]models.Student, error)
	SetGroup(ctx context.Context, studentID int64, groupID *int64) error
}

type rosterSupervisorStore interface {
	Create(ctx context.Context, sup *models.Supervisor) (*models.Supervisor, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Supervisor, error)
	SetStatus(ctx context.Context, id int64, status models.SupervisorStatus) error
}

type rosterBindingReader interface {
	ActiveBindingByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) (*models.GroupRoomBinding, error)
	ListAssignmentsByGroup(ctx context.Context, exec sqlx.ExtContext, groupID int64) ([]models.SupervisorAssignment, error)
}

// RosterService covers administrative upkeep of the roster store: courses,
// rooms, groups, students and supervisors. The gender invariant between a
// student and their group is enforced here; room and supervisor bindings are
// the assignment engine's job.
type RosterService struct {
	courses     rosterCourseStore
	rooms       rosterRoomStore
	groups      rosterGroupStore
	students    rosterStudentStore
	supervisors rosterSupervisorStore
	bindings    rosterBindingReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRosterService wires the roster service.
func NewRosterService(
	courses rosterCourseStore,
	rooms rosterRoomStore,
	groups rosterGroupStore,
	students rosterStudentStore,
	supervisors rosterSupervisorStore,
	bindings rosterBindingReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RosterService{
		courses:     courses,
		rooms:       rooms,
		groups:      groups,
		students:    students,
		supervisors: supervisors,
		bindings:    bindings,
		validator:   validate,
		logger:      logger,
	}
	svc.validator.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return models.Gender(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("supervisor_kind", func(fl validator.FieldLevel) bool {
		return models.SupervisorKind(strings.ToUpper(fl.Field().String())).Valid()
	})
	svc.validator.RegisterValidation("course_status", func(fl validator.FieldLevel) bool {
		return models.CourseStatus(strings.ToUpper(fl.Field().String())).Valid()
	})
	return svc
}

// CreateCourseRequest is the course creation payload.
type CreateCourseRequest struct {
	Name      string `json:"name" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// CreateRoomRequest is the room creation payload.
type CreateRoomRequest struct {
	CourseID      int64  `json:"course_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required"`
	Gender        string `json:"gender" validate:"required,gender"`
	NumberOfStaff int    `json:"number_of_staff" validate:"required,gt=0"`
}

// CreateGroupRequest is the group creation payload.
type CreateGroupRequest struct {
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required"`
	Gender   string `json:"gender" validate:"required,gender"`
}

// CreateStudentRequest is the student creation payload.
type CreateStudentRequest struct {
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
	GroupID  *int64 `json:"group_id" validate:"omitempty,gt=0"`
	FullName string `json:"full_name" validate:"required"`
	Gender   string `json:"gender" validate:"required,gender"`
}

// CreateSupervisorRequest is the supervisor creation payload.
type CreateSupervisorRequest struct {
	CourseID int64  `json:"course_id" validate:"required,gt=0"`
	UserID   *int64 `json:"user_id" validate:"omitempty,gt=0"`
	FullName string `json:"full_name" validate:"required"`
	Kind     string `json:"kind" validate:"required,supervisor_kind"`
}

// CreateCourse registers a new course run.
func (s *RosterService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "end_date precedes start_date")
	}
	course := &models.Course{Name: req.Name, StartDate: start, EndDate: end, Status: models.CourseStatusRecruiting}
	stored, err := s.courses.Create(ctx, course)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return stored, nil
}

// GetCourse returns one course.
func (s *RosterService) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "course not found")
	}
	return course, nil
}

// ListCourses returns courses with pagination.
func (s *RosterService) ListCourses(ctx context.Context, page, pageSize int) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return courses, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateCourseStatus moves a course along its lifecycle.
func (s *RosterService) UpdateCourseStatus(ctx context.Context, id int64, status string) error {
	st := models.CourseStatus(strings.ToUpper(status))
	if !st.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown course status %q", status))
	}
	if err := s.courses.UpdateStatus(ctx, id, st); err != nil {
		return notFoundOrInternal(err, "course not found")
	}
	return nil
}

// DeleteCourse soft-deletes a course; report history stays readable.
func (s *RosterService) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.courses.SoftDelete(ctx, id); err != nil {
		return notFoundOrInternal(err, "course not found")
	}
	return nil
}

// CreateRoom registers a room for a course.
func (s *RosterService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found")
	}
	room := &models.Room{
		CourseID:      req.CourseID,
		Name:          req.Name,
		Gender:        models.Gender(strings.ToUpper(req.Gender)),
		NumberOfStaff: req.NumberOfStaff,
	}
	stored, err := s.rooms.Create(ctx, room)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return stored, nil
}

// ListRooms returns the rooms of a course.
func (s *RosterService) ListRooms(ctx context.Context, courseID int64) ([]models.Room, error) {
	rooms, err := s.rooms.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// CreateGroup registers a student group.
func (s *RosterService) CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.StudentGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found")
	}
	group := &models.StudentGroup{
		CourseID: req.CourseID,
		Name:     req.Name,
		Gender:   models.Gender(strings.ToUpper(req.Gender)),
	}
	stored, err := s.groups.Create(ctx, group)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return stored, nil
}

// GetGroup returns a group with its current room binding and supervisor set.
func (s *RosterService) GetGroup(ctx context.Context, id int64) (*models.GroupDetail, error) {
	group, err := s.groups.FindByID(ctx, nil, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "group not found")
	}
	binding, err := s.bindings.ActiveBindingByGroup(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read binding")
	}
	assignments, err := s.bindings.ListAssignmentsByGroup(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read assignments")
	}
	count, err := s.groups.CountStudents(ctx, nil, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster")
	}
	detail := &models.GroupDetail{StudentGroup: *group, StudentCount: count, SupervisorIDs: make([]int64, 0, len(assignments))}
	if binding != nil {
		detail.RoomID = &binding.RoomID
	}
	for _, a := range assignments {
		detail.SupervisorIDs = append(detail.SupervisorIDs, a.SupervisorID)
	}
	return detail, nil
}

// ListGroups returns the groups of a course.
func (s *RosterService) ListGroups(ctx context.Context, courseID int64) ([]models.StudentGroup, error) {
	groups, err := s.groups.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// CreateStudent registers a student, optionally straight onto a group roster.
// The student's gender must match the group's.
func (s *RosterService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	gender := models.Gender(strings.ToUpper(req.Gender))
	if req.GroupID != nil {
		group, err := s.groups.FindByID(ctx, nil, *req.GroupID)
		if err != nil {
			return nil, notFoundOrInternal(err, "group not found")
		}
		if group.Gender != gender {
			return nil, appErrors.Clone(appErrors.ErrGenderMismatch,
				fmt.Sprintf("student is %s but group %q is %s", gender, group.Name, group.Gender))
		}
	}
	student := &models.Student{CourseID: req.CourseID, GroupID: req.GroupID, FullName: req.FullName, Gender: gender}
	stored, err := s.students.Create(ctx, student)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return stored, nil
}

// MoveStudent places a student on a group roster, or off any roster when
// groupID is nil. Enforces the group gender invariant.
func (s *RosterService) MoveStudent(ctx context.Context, studentID int64, groupID *int64) error {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return notFoundOrInternal(err, "student not found")
	}
	if groupID != nil {
		group, err := s.groups.FindByID(ctx, nil, *groupID)
		if err != nil {
			return notFoundOrInternal(err, "group not found")
		}
		if group.Gender != student.Gender {
			return appErrors.Clone(appErrors.ErrGenderMismatch,
				fmt.Sprintf("student %q is %s but group %q is %s", student.FullName, student.Gender, group.Name, group.Gender))
		}
	}
	if err := s.students.SetGroup(ctx, studentID, groupID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move student")
	}
	return nil
}

// ListStudents returns the students of a course, optionally one group.
func (s *RosterService) ListStudents(ctx context.Context, courseID int64, groupID *int64) ([]models.Student, error) {
	students, err := s.students.ListByCourse(ctx, courseID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// CreateSupervisor registers a supervisor or staff member.
func (s *RosterService) CreateSupervisor(ctx context.Context, req CreateSupervisorRequest) (*models.Supervisor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	sup := &models.Supervisor{
		CourseID: req.CourseID,
		UserID:   req.UserID,
		FullName: req.FullName,
		Kind:     models.SupervisorKind(strings.ToUpper(req.Kind)),
		Status:   models.SupervisorActive,
	}
	stored, err := s.supervisors.Create(ctx, sup)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create supervisor")
	}
	return stored, nil
}

// ListSupervisors returns the supervisors of a course.
func (s *RosterService) ListSupervisors(ctx context.Context, courseID int64) ([]models.Supervisor, error) {
	sups, err := s.supervisors.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list supervisors")
	}
	return sups, nil
}

// SetSupervisorStatus toggles whether a supervisor may receive bindings.
func (s *RosterService) SetSupervisorStatus(ctx context.Context, id int64, active bool) error {
	status := models.SupervisorActive
	if !active {
		status = models.SupervisorInactive
	}
	if err := s.supervisors.SetStatus(ctx, id, status); err != nil {
		return notFoundOrInternal(err, "supervisor not found")
	}
	return nil
}

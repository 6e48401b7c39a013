package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campwerk/nightwatch-api/internal/service"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
	"github.com/campwerk/nightwatch-api/pkg/response"
)

// RosterHandler exposes CRUD endpoints for courses, rooms, groups, students
// and supervisors.
type RosterHandler struct {
	roster       *service.RosterService
	availability *service.AvailabilityService
}

// NewRosterHandler constructs the handler.
func NewRosterHandler(roster *service.RosterService, availability *service.AvailabilityService) *RosterHandler {
	return &RosterHandler{roster: roster, availability: availability}
}

// CreateCourse godoc
// @Summary Create course
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *RosterHandler) CreateCourse(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.roster.CreateCourse(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// GetCourse godoc
// @Summary Get course
// @Tags Roster
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *RosterHandler) GetCourse(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.roster.GetCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// ListCourses godoc
// @Summary List courses
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *RosterHandler) ListCourses(c *gin.Context) {
	page, pageSize := queryPage(c)
	courses, pagination, err := h.roster.ListCourses(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// UpdateCourseStatus godoc
// @Summary Update course status
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Success 204 {object} response.Envelope
// @Router /courses/{id}/status [patch]
func (h *RosterHandler) UpdateCourseStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}
	if err := h.roster.UpdateCourseStatus(c.Request.Context(), id, payload.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteCourse godoc
// @Summary Delete course
// @Tags Roster
// @Param id path int true "Course ID"
// @Success 204 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *RosterHandler) DeleteCourse(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.roster.DeleteCourse(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateRoom godoc
// @Summary Create room
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Router /rooms [post]
func (h *RosterHandler) CreateRoom(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.roster.CreateRoom(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// ListRooms godoc
// @Summary List rooms of a course
// @Tags Roster
// @Produce json
// @Param courseId query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RosterHandler) ListRooms(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	rooms, err := h.roster.ListRooms(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateGroup godoc
// @Summary Create group
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /groups [post]
func (h *RosterHandler) CreateGroup(c *gin.Context) {
	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.roster.CreateGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// GetGroup godoc
// @Summary Get group with binding detail
// @Tags Roster
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *RosterHandler) GetGroup(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.roster.GetGroup(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListGroups godoc
// @Summary List groups of a course
// @Tags Roster
// @Produce json
// @Param courseId query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *RosterHandler) ListGroups(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	groups, err := h.roster.ListGroups(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// CreateStudent godoc
// @Summary Create student
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *RosterHandler) CreateStudent(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.roster.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// MoveStudent godoc
// @Summary Move student between group rosters
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path int true "Student ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/group [put]
func (h *RosterHandler) MoveStudent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		GroupID *int64 `json:"group_id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.roster.MoveStudent(c.Request.Context(), id, payload.GroupID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListStudents godoc
// @Summary List students of a course
// @Tags Roster
// @Produce json
// @Param courseId query int true "Course ID"
// @Param groupId query int false "Group ID"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *RosterHandler) ListStudents(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var groupID *int64
	if raw := c.Query("groupId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid groupId"))
			return
		}
		groupID = &id
	}
	students, err := h.roster.ListStudents(c.Request.Context(), courseID, groupID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// CreateSupervisor godoc
// @Summary Create supervisor
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body service.CreateSupervisorRequest true "Supervisor payload"
// @Success 201 {object} response.Envelope
// @Router /supervisors [post]
func (h *RosterHandler) CreateSupervisor(c *gin.Context) {
	var req service.CreateSupervisorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sup, err := h.roster.CreateSupervisor(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sup)
}

// ListSupervisors godoc
// @Summary List supervisors of a course
// @Tags Roster
// @Produce json
// @Param courseId query int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /supervisors [get]
func (h *RosterHandler) ListSupervisors(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	sups, err := h.roster.ListSupervisors(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sups, nil)
}

// SetSupervisorStatus godoc
// @Summary Activate or deactivate supervisor
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path int true "Supervisor ID"
// @Success 204 {object} response.Envelope
// @Router /supervisors/{id}/status [patch]
func (h *RosterHandler) SetSupervisorStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active required"))
		return
	}
	if err := h.roster.SetSupervisorStatus(c.Request.Context(), id, *payload.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeclareAvailability godoc
// @Summary Declare availability for a date
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body service.DeclareAvailabilityRequest true "Declaration"
// @Success 200 {object} response.Envelope
// @Router /availability [put]
func (h *RosterHandler) DeclareAvailability(c *gin.Context) {
	var req service.DeclareAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decl, err := h.availability.Declare(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decl, nil)
}

// RemoveAvailability godoc
// @Summary Remove an availability declaration
// @Tags Availability
// @Param id path int true "Supervisor ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 204 {object} response.Envelope
// @Router /availability/{id} [delete]
func (h *RosterHandler) RemoveAvailability(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.availability.Remove(c.Request.Context(), id, c.Query("date")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListAvailability godoc
// @Summary List availability declarations
// @Tags Availability
// @Produce json
// @Param id path int true "Supervisor ID"
// @Param from query string true "From date"
// @Param to query string true "To date"
// @Success 200 {object} response.Envelope
// @Router /availability/{id} [get]
func (h *RosterHandler) ListAvailability(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	from, err := queryDate(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	decls, err := h.availability.List(c.Request.Context(), id, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, decls, nil)
}

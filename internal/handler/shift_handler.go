package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campwerk/nightwatch-api/internal/service"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
	"github.com/campwerk/nightwatch-api/pkg/response"
)

// ShiftHandler exposes the night-shift scheduler endpoints.
type ShiftHandler struct {
	shifts *service.ShiftService
}

// NewShiftHandler constructs the handler.
func NewShiftHandler(shifts *service.ShiftService) *ShiftHandler {
	return &ShiftHandler{shifts: shifts}
}

// Materialize godoc
// @Summary Materialize shifts for a date range
// @Description Creates one shift per bound room per date; existing pairs are skipped
// @Tags Shifts
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /shifts/materialize [post]
func (h *ShiftHandler) Materialize(c *gin.Context) {
	var payload struct {
		CourseID int64  `json:"course_id" binding:"required"`
		DateFrom string `json:"date_from" binding:"required"`
		DateTo   string `json:"date_to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	from, to, err := parseDateRange(payload.DateFrom, payload.DateTo)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.shifts.MaterializeShifts(c.Request.Context(), payload.CourseID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a shift with its duty roster
// @Tags Shifts
// @Produce json
// @Param id path int true "Shift ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shifts/{id} [get]
func (h *ShiftHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.shifts.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// List godoc
// @Summary List shifts in a date range
// @Tags Shifts
// @Produce json
// @Param courseId query int true "Course ID"
// @Param from query string true "From date"
// @Param to query string true "To date"
// @Success 200 {object} response.Envelope
// @Router /shifts [get]
func (h *ShiftHandler) List(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
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
	shifts, err := h.shifts.List(c.Request.Context(), courseID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, shifts, nil)
}

// ResolveDuty godoc
// @Summary Re-freeze the duty roster from current bindings
// @Tags Shifts
// @Produce json
// @Param id path int true "Shift ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /shifts/{id}/duty [post]
func (h *ShiftHandler) ResolveDuty(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.shifts.ResolveDuty(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// DutyConflicts godoc
// @Summary List shifts whose duty supervisor declared the date unavailable
// @Tags Shifts
// @Produce json
// @Param courseId query int true "Course ID"
// @Param from query string true "From date"
// @Param to query string true "To date"
// @Success 200 {object} response.Envelope
// @Router /shifts/conflicts [get]
func (h *ShiftHandler) DutyConflicts(c *gin.Context) {
	courseID, err := queryID(c, "courseId")
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
	conflicts, err := h.shifts.DutyConflicts(c.Request.Context(), courseID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campwerk/nightwatch-api/internal/service"
	appErrors "github.com/campwerk/nightwatch-api/pkg/errors"
	"github.com/campwerk/nightwatch-api/pkg/response"
)

// AssignmentHandler exposes the assignment engine endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// AssignGroupToRoom godoc
// @Summary Bind a group to a room
// @Description Rebinds the group, releasing any previous room binding
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups/{id}/room [put]
func (h *AssignmentHandler) AssignGroupToRoom(c *gin.Context) {
	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var payload struct {
		RoomID int64 `json:"room_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "room_id required"))
		return
	}
	snapshot, err := h.assignments.AssignGroupToRoom(c.Request.Context(), groupID, payload.RoomID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// RemoveGroupBinding godoc
// @Summary Release a group's room binding
// @Tags Assignments
// @Param id path int true "Group ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/room [delete]
func (h *AssignmentHandler) RemoveGroupBinding(c *gin.Context) {
	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.assignments.RemoveGroupBinding(c.Request.Context(), groupID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignSupervisors godoc
// @Summary Replace the supervisor set of a group
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param payload body service.AssignSupervisorsRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /groups/{id}/supervisors [put]
func (h *AssignmentHandler) AssignSupervisors(c *gin.Context) {
	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AssignSupervisorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.GroupID = groupID
	detail, err := h.assignments.AssignSupervisorsToGroup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// RemoveSupervisorAssignment godoc
// @Summary Release one supervisor from a group
// @Tags Assignments
// @Param id path int true "Group ID"
// @Param supervisorId path int true "Supervisor ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/supervisors/{supervisorId} [delete]
func (h *AssignmentHandler) RemoveSupervisorAssignment(c *gin.Context) {
	groupID, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	supervisorID, err := pathID(c, "supervisorId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.assignments.RemoveSupervisorAssignment(c.Request.Context(), supervisorID, groupID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

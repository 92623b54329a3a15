package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/response"
)

// TemplateHandler manages schedule template endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
	conflicts *service.ConflictService
}

// NewTemplateHandler constructs handler.
func NewTemplateHandler(templates *service.TemplateService, conflicts *service.ConflictService) *TemplateHandler {
	return &TemplateHandler{templates: templates, conflicts: conflicts}
}

// List godoc
// @Summary List schedule templates
// @Tags Templates
// @Produce json
// @Param courseId query string false "Filter by course"
// @Param teacherId query string false "Filter by teacher"
// @Param classId query string false "Filter by class"
// @Param room query string false "Filter by room"
// @Param dayOfWeek query string false "Filter by day"
// @Param status query string false "Filter by approval status"
// @Param activeOnly query bool false "Only active templates"
// @Param includeDeactivated query bool false "Include deactivated templates"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	var filter models.TemplateFilter
	filter.CourseID = c.Query("courseId")
	filter.TeacherID = c.Query("teacherId")
	filter.ClassID = c.Query("classId")
	filter.Room = c.Query("room")
	filter.DayOfWeek = models.DayOfWeek(strings.ToUpper(c.Query("dayOfWeek")))
	filter.ApprovalStatus = models.ApprovalStatus(strings.ToUpper(c.Query("status")))
	filter.ActiveOnly = c.Query("activeOnly") == "true"
	filter.IncludeDeactivated = c.Query("includeDeactivated") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	templates, pagination, err := h.templates.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, pagination)
}

// Get godoc
// @Summary Get a schedule template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Create godoc
// @Summary Create a schedule template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.CreateTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var req service.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tpl, err := h.templates.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// Update godoc
// @Summary Update a schedule template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.UpdateTemplateRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var req service.UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tpl, err := h.templates.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Deactivate godoc
// @Summary Deactivate a schedule template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 204
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Deactivate(c *gin.Context) {
	if err := h.templates.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CheckConflicts godoc
// @Summary Check a proposed slot for teacher and room conflicts
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body service.ConflictCandidate true "Proposed slot"
// @Success 200 {object} response.Envelope
// @Router /templates/check-conflicts [post]
func (h *TemplateHandler) CheckConflicts(c *gin.Context) {
	var cand service.ConflictCandidate
	if err := c.ShouldBindJSON(&cand); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cand.DayOfWeek = models.DayOfWeek(strings.ToUpper(string(cand.DayOfWeek)))

	conflicts, err := h.conflicts.FindConflicts(c.Request.Context(), cand, c.Query("excludeId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"has_conflicts": !conflicts.Empty(),
		"conflicts":     conflicts,
	}, nil)
}

type approvalRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type rejectionRequest struct {
	Notes string `json:"notes"`
}

// Approve godoc
// @Summary Approve a pending template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body approvalRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Router /templates/{id}/approve [post]
func (h *TemplateHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req approvalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	tpl, err := h.templates.Approve(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// Reject godoc
// @Summary Reject a pending template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body rejectionRequest true "Rejection notes"
// @Success 200 {object} response.Envelope
// @Router /templates/{id}/reject [post]
func (h *TemplateHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req rejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	tpl, err := h.templates.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

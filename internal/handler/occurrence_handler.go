package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/service"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/response"
)

// OccurrenceHandler manages session occurrence endpoints.
type OccurrenceHandler struct {
	occurrences *service.OccurrenceService
}

// NewOccurrenceHandler constructs handler.
func NewOccurrenceHandler(occurrences *service.OccurrenceService) *OccurrenceHandler {
	return &OccurrenceHandler{occurrences: occurrences}
}

// Generate godoc
// @Summary Generate dated occurrences for a template
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.GenerateRequest true "Date range"
// @Success 200 {object} response.Envelope
// @Router /templates/{id}/generate [post]
func (h *OccurrenceHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	actorID := ""
	if claims := claimsFromContext(c); claims != nil {
		actorID = claims.UserID
	}

	report, err := h.occurrences.Generate(c.Request.Context(), c.Param("id"), actorID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// List godoc
// @Summary List session occurrences
// @Tags Occurrences
// @Produce json
// @Param templateId query string false "Filter by template"
// @Param teacherId query string false "Filter by teacher"
// @Param classId query string false "Filter by class"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "Start of date range (YYYY-MM-DD)"
// @Param dateTo query string false "End of date range (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /occurrences [get]
func (h *OccurrenceHandler) List(c *gin.Context) {
	var filter models.OccurrenceFilter
	filter.TemplateID = c.Query("templateId")
	filter.TeacherID = c.Query("teacherId")
	filter.ClassID = c.Query("classId")
	filter.Status = models.OccurrenceStatus(strings.ToUpper(c.Query("status")))
	if raw := c.Query("dateFrom"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid dateFrom, expected YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &parsed
	}
	if raw := c.Query("dateTo"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid dateTo, expected YYYY-MM-DD"))
			return
		}
		filter.DateTo = &parsed
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	occurrences, pagination, err := h.occurrences.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, pagination)
}

// Get godoc
// @Summary Get a session occurrence
// @Tags Occurrences
// @Produce json
// @Param id path string true "Occurrence ID"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{id} [get]
func (h *OccurrenceHandler) Get(c *gin.Context) {
	occ, err := h.occurrences.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occ, nil)
}

// UpdateStatus godoc
// @Summary Update occurrence lifecycle status
// @Tags Occurrences
// @Accept json
// @Produce json
// @Param id path string true "Occurrence ID"
// @Param payload body service.UpdateOccurrenceStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /occurrences/{id}/status [put]
func (h *OccurrenceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateOccurrenceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.Status = strings.ToUpper(req.Status)

	occ, err := h.occurrences.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occ, nil)
}

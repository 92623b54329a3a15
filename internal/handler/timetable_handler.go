package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushq/timetable-api/internal/service"
	"github.com/campushq/timetable-api/pkg/response"
)

// TimetableHandler serves timetable export endpoints.
type TimetableHandler struct {
	timetables *service.TimetableService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(timetables *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables}
}

// ExportTeacher godoc
// @Summary Export a teacher's weekly timetable
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /teachers/{id}/timetable/export [get]
func (h *TimetableHandler) ExportTeacher(c *gin.Context) {
	format := service.TimetableFormat(strings.ToLower(c.DefaultQuery("format", "csv")))

	export, err := h.timetables.ExportTeacherTimetable(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
	"github.com/campushq/timetable-api/pkg/export"
	"github.com/campushq/timetable-api/pkg/storage"
)

type timetableTemplateSource interface {
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleTemplate, error)
}

// TimetableFormat selects the export output format.
type TimetableFormat string

const (
	FormatCSV TimetableFormat = "csv"
	FormatPDF TimetableFormat = "pdf"
)

// TimetableExport carries the rendered document and its HTTP metadata.
type TimetableExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// TimetableService renders a teacher's active weekly timetable as a document.
type TimetableService struct {
	templates timetableTemplateSource
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	archive   *storage.LocalStorage
	logger    *zap.Logger
}

// NewTimetableService instantiates TimetableService. archive may be nil, in
// which case exports are only streamed to the caller.
func NewTimetableService(templates timetableTemplateSource, archive *storage.LocalStorage, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		templates: templates,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		archive:   archive,
		logger:    logger,
	}
}

var timetableHeaders = []string{"Day", "Start", "End", "Course", "Class", "Room", "Building", "Recurrence"}

// ExportTeacherTimetable renders the teacher's active templates sorted by day
// and start time.
func (s *TimetableService) ExportTeacherTimetable(ctx context.Context, teacherID string, format TimetableFormat) (*TimetableExport, error) {
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}

	templates, err := s.templates.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher timetable")
	}

	sort.SliceStable(templates, func(i, j int) bool {
		di, dj := templates[i].DayOfWeek.Order(), templates[j].DayOfWeek.Order()
		if di != dj {
			return di < dj
		}
		return templates[i].StartTime < templates[j].StartTime
	})

	dataset := export.Dataset{Headers: timetableHeaders}
	for _, tpl := range templates {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Day":        string(tpl.DayOfWeek),
			"Start":      tpl.StartTime,
			"End":        tpl.EndTime,
			"Course":     tpl.CourseID,
			"Class":      tpl.ClassID,
			"Room":       tpl.RoomValue(),
			"Building":   derefOrEmpty(tpl.Building),
			"Recurrence": string(tpl.RecurrenceType),
		})
	}

	var result *TimetableExport
	switch format {
	case FormatPDF:
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Weekly Timetable - %s", teacherID))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable pdf")
		}
		result = &TimetableExport{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("timetable-%s.pdf", teacherID),
		}
	case FormatCSV, "":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable csv")
		}
		result = &TimetableExport{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("timetable-%s.csv", teacherID),
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format: %s", format))
	}

	if s.archive != nil {
		name := fmt.Sprintf("%s/%s", time.Now().UTC().Format("2006-01-02"), result.Filename)
		if _, err := s.archive.Save(name, result.Content); err != nil {
			s.logger.Warn("failed to archive timetable export",
				zap.String("file", name), zap.Error(err))
		}
	}
	return result, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

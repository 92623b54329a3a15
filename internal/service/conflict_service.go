package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type conflictTemplateRepository interface {
	ListCandidates(ctx context.Context, day models.DayOfWeek, teacherID, room, excludeID string) ([]models.ScheduleTemplate, error)
}

// ConflictCandidate describes a proposed weekly slot to vet against existing
// templates.
type ConflictCandidate struct {
	TeacherID string           `json:"teacher_id" validate:"required"`
	Room      string           `json:"room"`
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	StartTime string           `json:"start_time" validate:"required"`
	EndTime   string           `json:"end_time" validate:"required"`
}

// ConflictService finds templates that double-book a teacher or a room. It is
// a pure read used both as a pre-flight check and as the gate inside template
// writes. The scan covers every non-rejected template, pending ones included,
// so a pending pair cannot sail through approval into a collision.
type ConflictService struct {
	repo      conflictTemplateRepository
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewConflictService instantiates ConflictService.
func NewConflictService(repo conflictTemplateRepository, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{repo: repo, validator: validate, metrics: metrics, logger: logger}
}

// FindConflicts returns teacher conflicts and room conflicts for the
// candidate slot, each reported independently. excludeID skips a template
// being edited so it does not conflict with itself.
func (s *ConflictService) FindConflicts(ctx context.Context, cand ConflictCandidate, excludeID string) (*models.TemplateConflicts, error) {
	if err := s.validator.Struct(cand); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict candidate")
	}
	if !cand.DayOfWeek.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
	}
	window, err := models.NewTimeWindow(cand.DayOfWeek, cand.StartTime, cand.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time window")
	}
	if window.End <= window.Start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	candidates, err := s.repo.ListCandidates(ctx, cand.DayOfWeek, cand.TeacherID, cand.Room, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan templates for conflicts")
	}

	conflicts := &models.TemplateConflicts{}
	for _, item := range candidates {
		other, err := item.Window()
		if err != nil {
			s.logger.Warn("template has unparseable time window, skipping in conflict scan",
				zap.String("template_id", item.ID), zap.Error(err))
			continue
		}
		if !window.Overlaps(other) {
			continue
		}
		if item.TeacherID == cand.TeacherID {
			conflicts.Teacher = append(conflicts.Teacher, conflictOf(item, models.ConflictTeacher))
		}
		if cand.Room != "" && item.RoomValue() == cand.Room {
			conflicts.Room = append(conflicts.Room, conflictOf(item, models.ConflictRoom))
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveConflictCheck(!conflicts.Empty())
	}
	return conflicts, nil
}

func conflictOf(tpl models.ScheduleTemplate, dimension models.ConflictDimension) models.TemplateConflict {
	return models.TemplateConflict{
		TemplateID: tpl.ID,
		CourseID:   tpl.CourseID,
		TeacherID:  tpl.TeacherID,
		Room:       tpl.RoomValue(),
		DayOfWeek:  tpl.DayOfWeek,
		StartTime:  tpl.StartTime,
		EndTime:    tpl.EndTime,
		Dimension:  dimension,
	}
}

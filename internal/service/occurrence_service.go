package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/internal/recurrence"
	"github.com/campushq/timetable-api/internal/repository"
	"github.com/campushq/timetable-api/pkg/config"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type occurrenceRepository interface {
	ExistingDates(ctx context.Context, templateID string, from, to time.Time) (map[string]struct{}, error)
	Create(ctx context.Context, occ *models.SessionOccurrence) error
	FindByID(ctx context.Context, id string) (*models.SessionOccurrence, error)
	List(ctx context.Context, filter models.OccurrenceFilter) ([]models.SessionOccurrence, int, error)
	UpdateStatus(ctx context.Context, id string, status models.OccurrenceStatus) error
}

type occurrenceTemplateSource interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error)
}

type generationLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

type generationMetrics interface {
	ObserveGeneration(created, skipped, failed int, duration time.Duration)
}

// GenerateRequest describes one generation run over a date range.
type GenerateRequest struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// UpdateOccurrenceStatusRequest moves one occurrence through its lifecycle.
type UpdateOccurrenceStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OccurrenceService materialises dated session occurrences from templates and
// manages their lifecycle afterwards. Generation is idempotent: the unique
// index on (template_id, scheduled_date) is the hard guarantee, the redis
// lock only spares duplicate work when two runs race.
type OccurrenceService struct {
	occurrences occurrenceRepository
	templates   occurrenceTemplateSource
	expander    *recurrence.Expander
	locker      generationLocker
	metrics     generationMetrics
	events      eventEmitter
	validator   *validator.Validate
	logger      *zap.Logger
	policy      config.SchedulingConfig
}

// NewOccurrenceService instantiates OccurrenceService. locker, metrics and
// events may be nil.
func NewOccurrenceService(occurrences occurrenceRepository, templates occurrenceTemplateSource, expander *recurrence.Expander, locker generationLocker, metrics generationMetrics, events eventEmitter, validate *validator.Validate, logger *zap.Logger, policy config.SchedulingConfig) *OccurrenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if expander == nil {
		expander = recurrence.NewExpander(nil)
	}
	return &OccurrenceService{
		occurrences: occurrences,
		templates:   templates,
		expander:    expander,
		locker:      locker,
		metrics:     metrics,
		events:      events,
		validator:   validate,
		logger:      logger,
		policy:      policy,
	}
}

// Generate expands one template over [start, end] and inserts the missing
// occurrences. Dates that already exist are reported as skipped, dates whose
// insert fails are reported individually, and neither stops the run.
func (s *OccurrenceService) Generate(ctx context.Context, templateID, actorID string, req GenerateRequest) (*models.GenerationReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if s.policy.MaxGenerationDays > 0 {
		if days := int(end.Sub(start).Hours()/24) + 1; days > s.policy.MaxGenerationDays {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date range exceeds the %d day generation limit", s.policy.MaxGenerationDays))
		}
	}

	tpl, err := s.templates.FindByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	if tpl.Deactivated {
		return nil, appErrors.Clone(appErrors.ErrState, "template is deactivated")
	}
	if !tpl.IsActive || !tpl.ApprovalStatus.Eligible() {
		return nil, appErrors.Clone(appErrors.ErrState, "template is not active, approve it before generating occurrences")
	}

	if s.locker != nil {
		lockKey := "generation:lock:" + templateID
		acquired, lockErr := s.locker.AcquireLock(ctx, lockKey, s.policy.GenerationLockTTL)
		if lockErr != nil {
			s.logger.Warn("generation lock unavailable, continuing unlocked",
				zap.String("template_id", templateID), zap.Error(lockErr))
		} else if !acquired {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a generation run for this template is already in progress")
		} else {
			defer func() {
				if err := s.locker.ReleaseLock(ctx, lockKey); err != nil {
					s.logger.Warn("failed to release generation lock", zap.Error(err))
				}
			}()
		}
	}

	began := time.Now()
	dates := s.expander.Expand(*tpl, start, end)
	report := &models.GenerationReport{
		TemplateID:      templateID,
		Created:         []models.GeneratedOccurrence{},
		Skipped:         []string{},
		TotalCandidates: len(dates),
	}

	existing := map[string]struct{}{}
	if len(dates) > 0 {
		existing, err = s.occurrences.ExistingDates(ctx, templateID, dates[0], dates[len(dates)-1])
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing occurrences")
		}
	}

	for _, date := range dates {
		key := date.Format(dateLayout)
		if _, ok := existing[key]; ok {
			report.Skipped = append(report.Skipped, key)
			continue
		}

		occ := models.SessionOccurrence{
			TemplateID:    templateID,
			CourseID:      tpl.CourseID,
			TeacherID:     tpl.TeacherID,
			ClassID:       tpl.ClassID,
			Room:          tpl.Room,
			ScheduledDate: date,
			StartTime:     tpl.StartTime,
			EndTime:       tpl.EndTime,
			Status:        models.OccurrenceScheduled,
		}
		if err := s.occurrences.Create(ctx, &occ); err != nil {
			if repository.IsUniqueViolation(err) {
				// Another run inserted this date between the snapshot and now.
				report.Skipped = append(report.Skipped, key)
				continue
			}
			s.logger.Error("occurrence insert failed",
				zap.String("template_id", templateID), zap.String("date", key), zap.Error(err))
			report.Failed = append(report.Failed, models.GenerationFailure{Date: key, Reason: err.Error()})
			continue
		}
		report.Created = append(report.Created, models.GeneratedOccurrence{OccurrenceID: occ.ID, Date: key})
	}

	if s.metrics != nil {
		s.metrics.ObserveGeneration(len(report.Created), len(report.Skipped), len(report.Failed), time.Since(began))
	}
	s.logger.Info("generation run finished",
		zap.String("template_id", templateID),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)))

	if s.events != nil && len(report.Created) > 0 {
		s.events.Emit(models.SchedulingEvent{
			Type:       models.EventOccurrencesGenerated,
			ResourceID: templateID,
			ActorID:    actorID,
			Payload: map[string]interface{}{
				"created": len(report.Created),
				"skipped": len(report.Skipped),
				"failed":  len(report.Failed),
			},
		})
	}
	return report, nil
}

// List returns occurrences matching the filter with pagination metadata.
func (s *OccurrenceService) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.SessionOccurrence, *models.Pagination, error) {
	occurrences, total, err := s.occurrences.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occurrences")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return occurrences, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one occurrence.
func (s *OccurrenceService) Get(ctx context.Context, id string) (*models.SessionOccurrence, error) {
	occ, err := s.occurrences.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "occurrence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load occurrence")
	}
	return occ, nil
}

// UpdateStatus moves an occurrence through its lifecycle, enforcing the
// transition table.
func (s *OccurrenceService) UpdateStatus(ctx context.Context, id string, req UpdateOccurrenceStatusRequest) (*models.SessionOccurrence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target := models.OccurrenceStatus(req.Status)
	if !target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown occurrence status")
	}

	occ, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !occ.Status.CanTransition(target) {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot move occurrence from %s to %s", occ.Status, target))
	}

	if err := s.occurrences.UpdateStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update occurrence status")
	}
	occ.Status = target
	return occ, nil
}

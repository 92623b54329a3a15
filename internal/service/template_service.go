package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/pkg/config"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type templateRepository interface {
	List(ctx context.Context, filter models.TemplateFilter) ([]models.ScheduleTemplate, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error)
	Create(ctx context.Context, tpl *models.ScheduleTemplate) error
	Update(ctx context.Context, tpl *models.ScheduleTemplate) error
	SetApproval(ctx context.Context, id string, status models.ApprovalStatus, isActive bool, approvedBy string, approvalDate time.Time, notes *string) error
	Deactivate(ctx context.Context, id string) error
}

type referenceRepository interface {
	CourseExists(ctx context.Context, id string) (bool, error)
	TeacherExists(ctx context.Context, id string) (bool, error)
	ClassExists(ctx context.Context, id string) (bool, error)
	RoomExists(ctx context.Context, id string) (bool, error)
}

type conflictChecker interface {
	FindConflicts(ctx context.Context, cand ConflictCandidate, excludeID string) (*models.TemplateConflicts, error)
}

type templateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type eventEmitter interface {
	Emit(event models.SchedulingEvent)
}

// CreateTemplateRequest describes payload for creating a schedule template.
type CreateTemplateRequest struct {
	CourseID       string  `json:"course_id" validate:"required"`
	TeacherID      string  `json:"teacher_id" validate:"required"`
	ClassID        string  `json:"class_id" validate:"required"`
	Room           *string `json:"room,omitempty"`
	Building       *string `json:"building,omitempty"`
	DayOfWeek      string  `json:"day_of_week" validate:"required"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
	RecurrenceType string  `json:"recurrence_type,omitempty"`
	EffectiveFrom  string  `json:"effective_from,omitempty"`
	EffectiveTo    *string `json:"effective_to,omitempty"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// UpdateTemplateRequest patches an existing template. At least one field must
// be supplied.
type UpdateTemplateRequest struct {
	CourseID       *string `json:"course_id,omitempty"`
	TeacherID      *string `json:"teacher_id,omitempty"`
	ClassID        *string `json:"class_id,omitempty"`
	Room           *string `json:"room,omitempty"`
	Building       *string `json:"building,omitempty"`
	DayOfWeek      *string `json:"day_of_week,omitempty"`
	StartTime      *string `json:"start_time,omitempty"`
	EndTime        *string `json:"end_time,omitempty"`
	RecurrenceType *string `json:"recurrence_type,omitempty"`
	EffectiveFrom  *string `json:"effective_from,omitempty"`
	EffectiveTo    *string `json:"effective_to,omitempty"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type templateListPayload struct {
	Items []models.ScheduleTemplate `json:"items"`
	Total int                       `json:"total"`
}

// TemplateService owns schedule template records: field invariants,
// persistence, the conflict gate on writes, and the approval state machine.
// It is the only writer of approval and activation fields.
type TemplateService struct {
	repo      templateRepository
	refs      referenceRepository
	conflicts conflictChecker
	cache     templateCache
	events    eventEmitter
	metrics   cacheMetrics
	validator *validator.Validate
	logger    *zap.Logger
	policy    config.SchedulingConfig
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// NewTemplateService instantiates TemplateService. cache, events and metrics
// may be nil.
func NewTemplateService(repo templateRepository, refs referenceRepository, conflicts conflictChecker, cache templateCache, events eventEmitter, metrics cacheMetrics, validate *validator.Validate, logger *zap.Logger, policy config.SchedulingConfig) *TemplateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateService{
		repo:      repo,
		refs:      refs,
		conflicts: conflicts,
		cache:     cache,
		events:    events,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		policy:    policy,
	}
}

// List returns templates with pagination metadata, consulting the short-TTL
// list cache when available.
func (s *TemplateService) List(ctx context.Context, filter models.TemplateFilter) ([]models.ScheduleTemplate, *models.Pagination, error) {
	key := listCacheKey(filter)
	if s.cache != nil {
		var payload templateListPayload
		err := s.cache.Get(ctx, key, &payload)
		if err == nil {
			s.recordCache(true)
			return payload.Items, paginationFor(filter, payload.Total), nil
		}
		s.recordCache(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("template list cache read failed", zap.Error(err))
		}
	}

	templates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, templateListPayload{Items: templates, Total: total}, s.policy.ListCacheTTL); err != nil {
			s.logger.Warn("template list cache write failed", zap.Error(err))
		}
	}
	return templates, paginationFor(filter, total), nil
}

// Get loads one template.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.ScheduleTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return tpl, nil
}

// Create validates a new template, runs the conflict gate and persists it.
// Approval policy decides whether it starts pending or immediately active.
func (s *TemplateService) Create(ctx context.Context, req CreateTemplateRequest) (*models.ScheduleTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	day := models.DayOfWeek(strings.ToUpper(req.DayOfWeek))
	if !day.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
	}

	if err := validateClockOrder(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	recurrence := models.RecurrenceWeekly
	if req.RecurrenceType != "" {
		recurrence = models.RecurrenceType(strings.ToUpper(req.RecurrenceType))
		if !recurrence.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown recurrence type")
		}
	}

	effectiveFrom, effectiveTo, err := parseEffectiveWindow(req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, req.CourseID, req.TeacherID, req.ClassID, req.Room); err != nil {
		return nil, err
	}

	if err := s.ensureNoConflict(ctx, req.TeacherID, req.Room, day, req.StartTime, req.EndTime, ""); err != nil {
		return nil, err
	}

	tpl := models.ScheduleTemplate{
		CourseID:       req.CourseID,
		TeacherID:      req.TeacherID,
		ClassID:        req.ClassID,
		Room:           req.Room,
		Building:       req.Building,
		DayOfWeek:      day,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		RecurrenceType: recurrence,
		EffectiveFrom:  effectiveFrom,
		EffectiveTo:    effectiveTo,
		Notes:          req.Notes,
	}
	if s.policy.RequireApproval {
		tpl.ApprovalStatus = models.ApprovalPending
		tpl.IsActive = false
	} else {
		tpl.ApprovalStatus = models.ApprovalAutoApproved
		tpl.IsActive = true
	}

	if err := s.repo.Create(ctx, &tpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	s.invalidateListCache(ctx)
	s.emit(models.EventTemplateCreated, tpl.ID, "", map[string]interface{}{
		"teacher_id": tpl.TeacherID,
		"day":        tpl.DayOfWeek,
	})
	return &tpl, nil
}

// Update applies a partial patch. Changes to the teacher, room or time window
// re-run the conflict gate against all other templates.
func (s *TemplateService) Update(ctx context.Context, id string, req UpdateTemplateRequest) (*models.ScheduleTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template patch")
	}
	if isEmptyPatch(req) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one field must be supplied")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Deactivated {
		return nil, appErrors.Clone(appErrors.ErrState, "template is deactivated")
	}
	if existing.ApprovalStatus == models.ApprovalRejected {
		return nil, appErrors.Clone(appErrors.ErrState, "rejected templates cannot be edited, submit a new template")
	}

	updated := *existing
	slotChanged := false

	if req.CourseID != nil {
		updated.CourseID = *req.CourseID
	}
	if req.TeacherID != nil && *req.TeacherID != updated.TeacherID {
		updated.TeacherID = *req.TeacherID
		slotChanged = true
	}
	if req.ClassID != nil {
		updated.ClassID = *req.ClassID
	}
	if req.Room != nil {
		updated.Room = req.Room
		slotChanged = true
	}
	if req.Building != nil {
		updated.Building = req.Building
	}
	if req.DayOfWeek != nil {
		day := models.DayOfWeek(strings.ToUpper(*req.DayOfWeek))
		if !day.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown day of week")
		}
		if day != updated.DayOfWeek {
			updated.DayOfWeek = day
			slotChanged = true
		}
	}
	if req.StartTime != nil && *req.StartTime != updated.StartTime {
		updated.StartTime = *req.StartTime
		slotChanged = true
	}
	if req.EndTime != nil && *req.EndTime != updated.EndTime {
		updated.EndTime = *req.EndTime
		slotChanged = true
	}
	if req.RecurrenceType != nil {
		recurrence := models.RecurrenceType(strings.ToUpper(*req.RecurrenceType))
		if !recurrence.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown recurrence type")
		}
		updated.RecurrenceType = recurrence
	}
	if req.EffectiveFrom != nil {
		from, err := time.Parse(dateLayout, *req.EffectiveFrom)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from date")
		}
		updated.EffectiveFrom = from
	}
	if req.EffectiveTo != nil {
		to, err := time.Parse(dateLayout, *req.EffectiveTo)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_to date")
		}
		updated.EffectiveTo = &to
	}
	if req.Notes != nil {
		updated.Notes = req.Notes
	}

	if err := validateClockOrder(updated.StartTime, updated.EndTime); err != nil {
		return nil, err
	}
	if updated.EffectiveTo != nil && !updated.EffectiveTo.After(updated.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to must be after effective_from")
	}

	if req.CourseID != nil || req.TeacherID != nil || req.ClassID != nil || req.Room != nil {
		room := req.Room
		if room != nil && *room == "" {
			room = nil
		}
		if err := s.checkReferences(ctx, updated.CourseID, updated.TeacherID, updated.ClassID, room); err != nil {
			return nil, err
		}
	}

	if slotChanged {
		if err := s.ensureNoConflict(ctx, updated.TeacherID, updated.Room, updated.DayOfWeek, updated.StartTime, updated.EndTime, updated.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	s.invalidateListCache(ctx)
	return &updated, nil
}

// Deactivate soft-deletes a template. Generated occurrences keep their
// history.
func (s *TemplateService) Deactivate(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Deactivated {
		return appErrors.Clone(appErrors.ErrState, "template is already deactivated")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate template")
	}
	s.invalidateListCache(ctx)
	s.emit(models.EventTemplateDeactivated, id, "", nil)
	return nil
}

// Approve moves a pending template to approved and activates it.
func (s *TemplateService) Approve(ctx context.Context, id, approverID string, notes *string) (*models.ScheduleTemplate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Deactivated {
		return nil, appErrors.Clone(appErrors.ErrState, "template is deactivated")
	}
	if !existing.ApprovalStatus.CanTransition(models.ApprovalApproved) {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot approve template in state %s", existing.ApprovalStatus))
	}

	now := time.Now().UTC()
	if err := s.repo.SetApproval(ctx, id, models.ApprovalApproved, true, approverID, now, notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve template")
	}

	existing.ApprovalStatus = models.ApprovalApproved
	existing.IsActive = true
	existing.ApprovedBy = &approverID
	existing.ApprovalDate = &now
	existing.ApprovalNotes = notes

	s.invalidateListCache(ctx)
	s.emit(models.EventTemplateApproved, id, approverID, nil)
	return existing, nil
}

// Reject marks a pending template rejected. Notes are mandatory; a rejected
// template stays inactive for good.
func (s *TemplateService) Reject(ctx context.Context, id, approverID, notes string) (*models.ScheduleTemplate, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection requires approval notes")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Deactivated {
		return nil, appErrors.Clone(appErrors.ErrState, "template is deactivated")
	}
	if !existing.ApprovalStatus.CanTransition(models.ApprovalRejected) {
		return nil, appErrors.Clone(appErrors.ErrState, fmt.Sprintf("cannot reject template in state %s", existing.ApprovalStatus))
	}

	now := time.Now().UTC()
	if err := s.repo.SetApproval(ctx, id, models.ApprovalRejected, false, approverID, now, &notes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject template")
	}

	existing.ApprovalStatus = models.ApprovalRejected
	existing.IsActive = false
	existing.ApprovedBy = &approverID
	existing.ApprovalDate = &now
	existing.ApprovalNotes = &notes

	s.invalidateListCache(ctx)
	s.emit(models.EventTemplateRejected, id, approverID, map[string]interface{}{"notes": notes})
	return existing, nil
}

func (s *TemplateService) ensureNoConflict(ctx context.Context, teacherID string, room *string, day models.DayOfWeek, start, end, excludeID string) error {
	roomValue := ""
	if room != nil {
		roomValue = *room
	}
	conflicts, err := s.conflicts.FindConflicts(ctx, ConflictCandidate{
		TeacherID: teacherID,
		Room:      roomValue,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	}, excludeID)
	if err != nil {
		return err
	}
	if conflicts.Empty() {
		return nil
	}
	domainErr := &models.TemplateConflictError{
		Message:   "template conflicts with existing schedule",
		Conflicts: *conflicts,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict detected").
		WithDetails(domainErr.Conflicts)
}

func (s *TemplateService) checkReferences(ctx context.Context, courseID, teacherID, classID string, room *string) error {
	checks := []struct {
		name   string
		id     string
		lookup func(context.Context, string) (bool, error)
	}{
		{"course", courseID, s.refs.CourseExists},
		{"teacher", teacherID, s.refs.TeacherExists},
		{"class", classID, s.refs.ClassExists},
	}
	if room != nil && *room != "" {
		checks = append(checks, struct {
			name   string
			id     string
			lookup func(context.Context, string) (bool, error)
		}{"room", *room, s.refs.RoomExists})
	}

	for _, check := range checks {
		ok, err := check.lookup(ctx, check.id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to resolve %s reference", check.name))
		}
		if !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown %s: %s", check.name, check.id))
		}
	}
	return nil
}

func (s *TemplateService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func (s *TemplateService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "templates:list:*"); err != nil {
		s.logger.Warn("failed to invalidate template list cache", zap.Error(err))
	}
}

func (s *TemplateService) emit(eventType models.EventType, resourceID, actorID string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Emit(models.SchedulingEvent{
		Type:       eventType,
		ResourceID: resourceID,
		ActorID:    actorID,
		Payload:    payload,
	})
}

func validateClockOrder(start, end string) error {
	startMin, err := models.ParseClock(start)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid start_time, expected HH:MM")
	}
	endMin, err := models.ParseClock(end)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid end_time, expected HH:MM")
	}
	if endMin <= startMin {
		return appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return nil
}

func parseEffectiveWindow(fromRaw string, toRaw *string) (time.Time, *time.Time, error) {
	var from time.Time
	if fromRaw == "" {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse(dateLayout, fromRaw)
		if err != nil {
			return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from date, expected YYYY-MM-DD")
		}
		from = parsed
	}

	if toRaw == nil {
		return from, nil, nil
	}
	to, err := time.Parse(dateLayout, *toRaw)
	if err != nil {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_to date, expected YYYY-MM-DD")
	}
	if !to.After(from) {
		return time.Time{}, nil, appErrors.Clone(appErrors.ErrValidation, "effective_to must be after effective_from")
	}
	return from, &to, nil
}

func isEmptyPatch(req UpdateTemplateRequest) bool {
	return req.CourseID == nil && req.TeacherID == nil && req.ClassID == nil &&
		req.Room == nil && req.Building == nil && req.DayOfWeek == nil &&
		req.StartTime == nil && req.EndTime == nil && req.RecurrenceType == nil &&
		req.EffectiveFrom == nil && req.EffectiveTo == nil && req.Notes == nil
}

func listCacheKey(filter models.TemplateFilter) string {
	return fmt.Sprintf("templates:list:%s:%s:%s:%s:%s:%s:%t:%t:%d:%d:%s:%s",
		filter.CourseID, filter.TeacherID, filter.ClassID, filter.Room,
		filter.DayOfWeek, filter.ApprovalStatus, filter.ActiveOnly,
		filter.IncludeDeactivated, filter.Page, filter.PageSize,
		filter.SortBy, filter.SortOrder)
}

func paginationFor(filter models.TemplateFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
	"github.com/campushq/timetable-api/pkg/config"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type stubOccurrenceRepo struct {
	existing    map[string]struct{}
	failDates   map[string]error
	occurrences map[string]*models.SessionOccurrence
	created     []models.SessionOccurrence

	statusID     string
	statusTarget models.OccurrenceStatus
}

func newStubOccurrenceRepo() *stubOccurrenceRepo {
	return &stubOccurrenceRepo{
		existing:    map[string]struct{}{},
		failDates:   map[string]error{},
		occurrences: map[string]*models.SessionOccurrence{},
	}
}

func (s *stubOccurrenceRepo) ExistingDates(context.Context, string, time.Time, time.Time) (map[string]struct{}, error) {
	return s.existing, nil
}

func (s *stubOccurrenceRepo) Create(_ context.Context, occ *models.SessionOccurrence) error {
	key := occ.ScheduledDate.Format("2006-01-02")
	if err, ok := s.failDates[key]; ok {
		return err
	}
	occ.ID = fmt.Sprintf("occ-%s", key)
	s.created = append(s.created, *occ)
	return nil
}

func (s *stubOccurrenceRepo) FindByID(_ context.Context, id string) (*models.SessionOccurrence, error) {
	occ, ok := s.occurrences[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *occ
	return &copied, nil
}

func (s *stubOccurrenceRepo) List(context.Context, models.OccurrenceFilter) ([]models.SessionOccurrence, int, error) {
	out := make([]models.SessionOccurrence, 0, len(s.occurrences))
	for _, occ := range s.occurrences {
		out = append(out, *occ)
	}
	return out, len(out), nil
}

func (s *stubOccurrenceRepo) UpdateStatus(_ context.Context, id string, status models.OccurrenceStatus) error {
	s.statusID = id
	s.statusTarget = status
	return nil
}

type stubTemplateSource struct {
	tpl *models.ScheduleTemplate
}

func (s *stubTemplateSource) FindByID(context.Context, string) (*models.ScheduleTemplate, error) {
	if s.tpl == nil {
		return nil, sql.ErrNoRows
	}
	copied := *s.tpl
	return &copied, nil
}

type stubLocker struct {
	denied   bool
	err      error
	acquired []string
	released []string
}

func (s *stubLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.denied {
		return false, nil
	}
	s.acquired = append(s.acquired, key)
	return true, nil
}

func (s *stubLocker) ReleaseLock(_ context.Context, key string) error {
	s.released = append(s.released, key)
	return nil
}

func activeWeeklyTemplate() *models.ScheduleTemplate {
	return &models.ScheduleTemplate{
		ID:             "tpl-1",
		CourseID:       "course-math",
		TeacherID:      "teacher-x",
		ClassID:        "class-7a",
		Room:           strPtr("101"),
		DayOfWeek:      models.DayMonday,
		StartTime:      "09:00",
		EndTime:        "10:30",
		RecurrenceType: models.RecurrenceWeekly,
		EffectiveFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:       true,
		ApprovalStatus: models.ApprovalApproved,
	}
}

func newOccurrenceService(repo *stubOccurrenceRepo, tpl *models.ScheduleTemplate, locker generationLocker) *OccurrenceService {
	return NewOccurrenceService(repo, &stubTemplateSource{tpl: tpl}, nil, locker, nil, nil, nil, nil, config.SchedulingConfig{
		MaxGenerationDays: 366,
		GenerationLockTTL: time.Minute,
	})
}

func januaryRequest() GenerateRequest {
	return GenerateRequest{StartDate: "2024-01-01", EndDate: "2024-01-31"}
}

func TestGenerateCreatesAllMondays(t *testing.T) {
	repo := newStubOccurrenceRepo()
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalCandidates)
	assert.Len(t, report.Created, 5)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)
	assert.Equal(t, "2024-01-01", report.Created[0].Date)
	assert.Equal(t, "2024-01-29", report.Created[4].Date)

	require.Len(t, repo.created, 5)
	first := repo.created[0]
	assert.Equal(t, "course-math", first.CourseID)
	assert.Equal(t, "teacher-x", first.TeacherID)
	assert.Equal(t, models.OccurrenceScheduled, first.Status)
}

func TestGenerateIsIdempotent(t *testing.T) {
	repo := newStubOccurrenceRepo()
	for _, d := range []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29"} {
		repo.existing[d] = struct{}{}
	}
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	assert.Empty(t, report.Created)
	assert.Len(t, report.Skipped, 5)
	assert.Equal(t, 5, report.TotalCandidates)
	assert.Empty(t, repo.created)
}

func TestGeneratePartialExisting(t *testing.T) {
	repo := newStubOccurrenceRepo()
	repo.existing["2024-01-01"] = struct{}{}
	repo.existing["2024-01-08"] = struct{}{}
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	assert.Len(t, report.Created, 3)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, report.Skipped)
	assert.Equal(t, 5, report.TotalCandidates)
}

func TestGenerateContinuesPastFailures(t *testing.T) {
	repo := newStubOccurrenceRepo()
	repo.failDates["2024-01-15"] = errors.New("connection reset")
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	assert.Len(t, report.Created, 4)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "2024-01-15", report.Failed[0].Date)
	assert.Contains(t, report.Failed[0].Reason, "connection reset")
}

func TestGenerateTreatsUniqueViolationAsSkip(t *testing.T) {
	repo := newStubOccurrenceRepo()
	repo.failDates["2024-01-08"] = &pq.Error{Code: "23505"}
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	assert.Len(t, report.Created, 4)
	assert.Equal(t, []string{"2024-01-08"}, report.Skipped)
	assert.Empty(t, report.Failed)
}

func TestGenerateTemplateNotFound(t *testing.T) {
	svc := newOccurrenceService(newStubOccurrenceRepo(), nil, nil)

	_, err := svc.Generate(context.Background(), "missing", "admin-1", januaryRequest())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGenerateRequiresActiveTemplate(t *testing.T) {
	tpl := activeWeeklyTemplate()
	tpl.IsActive = false
	tpl.ApprovalStatus = models.ApprovalPending
	svc := newOccurrenceService(newStubOccurrenceRepo(), tpl, nil)

	_, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrState.Code, appErr.Code)
}

func TestGenerateCapsDateRange(t *testing.T) {
	svc := newOccurrenceService(newStubOccurrenceRepo(), activeWeeklyTemplate(), nil)

	_, err := svc.Generate(context.Background(), "tpl-1", "admin-1", GenerateRequest{
		StartDate: "2024-01-01",
		EndDate:   "2026-01-01",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerateLockContention(t *testing.T) {
	locker := &stubLocker{denied: true}
	svc := newOccurrenceService(newStubOccurrenceRepo(), activeWeeklyTemplate(), locker)

	_, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestGenerateContinuesWhenLockBackendIsDown(t *testing.T) {
	locker := &stubLocker{err: errors.New("redis unreachable")}
	svc := newOccurrenceService(newStubOccurrenceRepo(), activeWeeklyTemplate(), locker)

	report, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)
	assert.Len(t, report.Created, 5)
}

func TestGenerateReleasesLock(t *testing.T) {
	locker := &stubLocker{}
	svc := newOccurrenceService(newStubOccurrenceRepo(), activeWeeklyTemplate(), locker)

	_, err := svc.Generate(context.Background(), "tpl-1", "admin-1", januaryRequest())
	require.NoError(t, err)

	require.Len(t, locker.acquired, 1)
	assert.Equal(t, locker.acquired, locker.released)
}

func TestUpdateOccurrenceStatusTransition(t *testing.T) {
	repo := newStubOccurrenceRepo()
	repo.occurrences["occ-1"] = &models.SessionOccurrence{ID: "occ-1", Status: models.OccurrenceScheduled}
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	occ, err := svc.UpdateStatus(context.Background(), "occ-1", UpdateOccurrenceStatusRequest{Status: "CANCELLED"})
	require.NoError(t, err)

	assert.Equal(t, models.OccurrenceCancelled, occ.Status)
	assert.Equal(t, "occ-1", repo.statusID)
}

func TestUpdateOccurrenceStatusRefusesTerminalMove(t *testing.T) {
	repo := newStubOccurrenceRepo()
	repo.occurrences["occ-1"] = &models.SessionOccurrence{ID: "occ-1", Status: models.OccurrenceCompleted}
	svc := newOccurrenceService(repo, activeWeeklyTemplate(), nil)

	_, err := svc.UpdateStatus(context.Background(), "occ-1", UpdateOccurrenceStatusRequest{Status: "SCHEDULED"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrState.Code, appErr.Code)
}

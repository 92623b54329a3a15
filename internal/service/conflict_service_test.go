package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
	appErrors "github.com/campushq/timetable-api/pkg/errors"
)

type stubConflictRepo struct {
	candidates []models.ScheduleTemplate
	err        error

	gotDay       models.DayOfWeek
	gotTeacher   string
	gotRoom      string
	gotExcludeID string
}

func (s *stubConflictRepo) ListCandidates(_ context.Context, day models.DayOfWeek, teacherID, room, excludeID string) ([]models.ScheduleTemplate, error) {
	s.gotDay = day
	s.gotTeacher = teacherID
	s.gotRoom = room
	s.gotExcludeID = excludeID
	return s.candidates, s.err
}

func strPtr(s string) *string { return &s }

func mondayTemplate(id, teacherID, room, start, end string) models.ScheduleTemplate {
	return models.ScheduleTemplate{
		ID:        id,
		CourseID:  "course-math",
		TeacherID: teacherID,
		Room:      strPtr(room),
		DayOfWeek: models.DayMonday,
		StartTime: start,
		EndTime:   end,
	}
}

func TestFindConflictsTeacherOverlapDifferentRoom(t *testing.T) {
	repo := &stubConflictRepo{candidates: []models.ScheduleTemplate{
		mondayTemplate("tpl-1", "teacher-x", "101", "09:00", "10:30"),
	}}
	svc := NewConflictService(repo, nil, nil, nil)

	conflicts, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-x",
		Room:      "102",
		DayOfWeek: models.DayMonday,
		StartTime: "10:00",
		EndTime:   "11:00",
	}, "")
	require.NoError(t, err)

	assert.Len(t, conflicts.Teacher, 1)
	assert.Empty(t, conflicts.Room)
	assert.Equal(t, "tpl-1", conflicts.Teacher[0].TemplateID)
	assert.Equal(t, models.ConflictTeacher, conflicts.Teacher[0].Dimension)
}

func TestFindConflictsBackToBackSlotsAreClear(t *testing.T) {
	repo := &stubConflictRepo{candidates: []models.ScheduleTemplate{
		mondayTemplate("tpl-1", "teacher-x", "101", "09:00", "10:30"),
	}}
	svc := NewConflictService(repo, nil, nil, nil)

	conflicts, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-y",
		Room:      "101",
		DayOfWeek: models.DayMonday,
		StartTime: "10:30",
		EndTime:   "11:30",
	}, "")
	require.NoError(t, err)
	assert.True(t, conflicts.Empty())
}

func TestFindConflictsRoomOverlap(t *testing.T) {
	repo := &stubConflictRepo{candidates: []models.ScheduleTemplate{
		mondayTemplate("tpl-1", "teacher-x", "101", "09:00", "10:30"),
	}}
	svc := NewConflictService(repo, nil, nil, nil)

	conflicts, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-y",
		Room:      "101",
		DayOfWeek: models.DayMonday,
		StartTime: "10:00",
		EndTime:   "11:00",
	}, "")
	require.NoError(t, err)

	assert.Empty(t, conflicts.Teacher)
	assert.Len(t, conflicts.Room, 1)
	assert.Equal(t, models.ConflictRoom, conflicts.Room[0].Dimension)
}

func TestFindConflictsSameTemplateHitsBothDimensions(t *testing.T) {
	repo := &stubConflictRepo{candidates: []models.ScheduleTemplate{
		mondayTemplate("tpl-1", "teacher-x", "101", "09:00", "10:30"),
	}}
	svc := NewConflictService(repo, nil, nil, nil)

	conflicts, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-x",
		Room:      "101",
		DayOfWeek: models.DayMonday,
		StartTime: "09:30",
		EndTime:   "10:00",
	}, "")
	require.NoError(t, err)

	assert.Len(t, conflicts.Teacher, 1)
	assert.Len(t, conflicts.Room, 1)
	assert.Len(t, conflicts.All(), 2)
}

func TestFindConflictsPassesExcludeID(t *testing.T) {
	repo := &stubConflictRepo{}
	svc := NewConflictService(repo, nil, nil, nil)

	_, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-x",
		DayOfWeek: models.DayMonday,
		StartTime: "09:00",
		EndTime:   "10:00",
	}, "tpl-editing")
	require.NoError(t, err)
	assert.Equal(t, "tpl-editing", repo.gotExcludeID)
	assert.Equal(t, models.DayMonday, repo.gotDay)
}

func TestFindConflictsRejectsInvertedWindow(t *testing.T) {
	svc := NewConflictService(&stubConflictRepo{}, nil, nil, nil)

	_, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-x",
		DayOfWeek: models.DayMonday,
		StartTime: "11:00",
		EndTime:   "10:00",
	}, "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestFindConflictsRepositoryError(t *testing.T) {
	svc := NewConflictService(&stubConflictRepo{err: errors.New("boom")}, nil, nil, nil)

	_, err := svc.FindConflicts(context.Background(), ConflictCandidate{
		TeacherID: "teacher-x",
		DayOfWeek: models.DayMonday,
		StartTime: "09:00",
		EndTime:   "10:00",
	}, "")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInternal.Code, appErr.Code)
}

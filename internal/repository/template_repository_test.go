package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func newTemplateRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func templateRows() *sqlmock.Rows {
	room := "101"
	return sqlmock.NewRows([]string{
		"id", "course_id", "teacher_id", "class_id", "room", "building",
		"day_of_week", "start_time", "end_time", "recurrence_type",
		"effective_from", "effective_to", "is_active", "approval_status",
		"approved_by", "approval_date", "approval_notes", "notes",
		"deactivated", "created_at", "updated_at",
	}).AddRow(
		"tpl-1", "course-1", "teacher-1", "class-1", room, nil,
		"MONDAY", "09:00", "10:30", "WEEKLY",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil, true, "APPROVED",
		nil, nil, nil, nil,
		false, time.Now(), time.Now(),
	)
}

func TestTemplateRepositoryList(t *testing.T) {
	db, mock, cleanup := newTemplateRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + templateColumns + " FROM schedule_templates WHERE 1=1 AND deactivated = FALSE ORDER BY day_of_week ASC, start_time ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(templateRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schedule_templates WHERE 1=1 AND deactivated = FALSE")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TemplateFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.DayMonday, list[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryListCandidates(t *testing.T) {
	db, mock, cleanup := newTemplateRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+templateColumns+" FROM schedule_templates WHERE deactivated = FALSE AND approval_status <> 'REJECTED' AND day_of_week = $1 AND (teacher_id = $2 OR (room IS NOT NULL AND room = $3)) ORDER BY start_time ASC")).
		WithArgs("MONDAY", "teacher-1", "101").
		WillReturnRows(templateRows())

	candidates, err := repo.ListCandidates(context.Background(), models.DayMonday, "teacher-1", "101", "")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryListCandidatesWithoutRoomExcludesSelf(t *testing.T) {
	db, mock, cleanup := newTemplateRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+templateColumns+" FROM schedule_templates WHERE deactivated = FALSE AND approval_status <> 'REJECTED' AND day_of_week = $1 AND teacher_id = $2 AND id <> $3 ORDER BY start_time ASC")).
		WithArgs("FRIDAY", "teacher-2", "tpl-9").
		WillReturnRows(templateRows())

	candidates, err := repo.ListCandidates(context.Background(), models.DayFriday, "teacher-2", "", "tpl-9")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositoryCreateAndDeactivate(t *testing.T) {
	db, mock, cleanup := newTemplateRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	mock.ExpectExec("INSERT INTO schedule_templates").
		WithArgs(
			sqlmock.AnyArg(), "course-1", "teacher-1", "class-1", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"MONDAY", "09:00", "10:30", "WEEKLY",
			sqlmock.AnyArg(), sqlmock.AnyArg(), false, "PENDING",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			false, sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tpl := &models.ScheduleTemplate{
		CourseID:       "course-1",
		TeacherID:      "teacher-1",
		ClassID:        "class-1",
		DayOfWeek:      models.DayMonday,
		StartTime:      "09:00",
		EndTime:        "10:30",
		RecurrenceType: models.RecurrenceWeekly,
		EffectiveFrom:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ApprovalStatus: models.ApprovalPending,
	}
	require.NoError(t, repo.Create(context.Background(), tpl))
	assert.NotEmpty(t, tpl.ID)

	mock.ExpectExec("UPDATE schedule_templates SET deactivated = TRUE").
		WithArgs("tpl-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "tpl-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTemplateRepositorySetApproval(t *testing.T) {
	db, mock, cleanup := newTemplateRepoMock(t)
	defer cleanup()
	repo := NewTemplateRepository(db)

	notes := "approved for term"
	mock.ExpectExec("UPDATE schedule_templates SET approval_status").
		WithArgs("tpl-1", "APPROVED", true, "manager-1", sqlmock.AnyArg(), notes, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SetApproval(context.Background(), "tpl-1", models.ApprovalApproved, true, "manager-1", time.Now().UTC(), &notes)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/timetable-api/internal/models"
)

func newOccurrenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestOccurrenceRepositoryExistingDates(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"scheduled_date"}).
		AddRow(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)).
		AddRow(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT scheduled_date FROM session_occurrences WHERE template_id = $1 AND scheduled_date BETWEEN $2 AND $3")).
		WithArgs("tpl-1", from, to).
		WillReturnRows(rows)

	existing, err := repo.ExistingDates(context.Background(), "tpl-1", from, to)
	require.NoError(t, err)
	assert.Len(t, existing, 2)
	_, ok := existing["2024-01-08"]
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectExec("INSERT INTO session_occurrences").
		WithArgs(
			sqlmock.AnyArg(), "tpl-1", "course-1", "teacher-1", "class-1", sqlmock.AnyArg(),
			sqlmock.AnyArg(), "09:00", "10:30", "SCHEDULED",
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	occ := &models.SessionOccurrence{
		TemplateID:    "tpl-1",
		CourseID:      "course-1",
		TeacherID:     "teacher-1",
		ClassID:       "class-1",
		ScheduledDate: time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
		StartTime:     "09:00",
		EndTime:       "10:30",
		Status:        models.OccurrenceScheduled,
	}
	require.NoError(t, repo.Create(context.Background(), occ))
	assert.NotEmpty(t, occ.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newOccurrenceRepoMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectExec("UPDATE session_occurrences SET status").
		WithArgs("occ-1", "CANCELLED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "occ-1", models.OccurrenceCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.Join(errors.New("wrapped"), &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
}

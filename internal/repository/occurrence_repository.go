package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campushq/timetable-api/internal/models"
)

const occurrenceColumns = "id, template_id, course_id, teacher_id, class_id, room, scheduled_date, start_time, end_time, status, created_at, updated_at"

// OccurrenceRepository provides persistence for session occurrences. The
// occurrences table carries a unique index on (template_id, scheduled_date)
// which backs generation idempotence under concurrent runs.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository creates a new occurrence repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// IsUniqueViolation reports whether the error is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// ExistingDates returns the set of dates in [from, to] that already have an
// occurrence for the template, keyed by "2006-01-02".
func (r *OccurrenceRepository) ExistingDates(ctx context.Context, templateID string, from, to time.Time) (map[string]struct{}, error) {
	const query = `SELECT scheduled_date FROM session_occurrences WHERE template_id = $1 AND scheduled_date BETWEEN $2 AND $3`
	var dates []time.Time
	if err := r.db.SelectContext(ctx, &dates, query, templateID, from, to); err != nil {
		return nil, fmt.Errorf("list existing occurrence dates: %w", err)
	}
	existing := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		existing[d.Format("2006-01-02")] = struct{}{}
	}
	return existing, nil
}

// Create stores a new occurrence record.
func (r *OccurrenceRepository) Create(ctx context.Context, occ *models.SessionOccurrence) error {
	if occ.ID == "" {
		occ.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if occ.CreatedAt.IsZero() {
		occ.CreatedAt = now
	}
	occ.UpdatedAt = now

	const query = `INSERT INTO session_occurrences (id, template_id, course_id, teacher_id, class_id, room, scheduled_date, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query,
		occ.ID, occ.TemplateID, occ.CourseID, occ.TeacherID, occ.ClassID, occ.Room,
		occ.ScheduledDate, occ.StartTime, occ.EndTime, occ.Status,
		occ.CreatedAt, occ.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create occurrence: %w", err)
	}
	return nil
}

// FindByID loads an occurrence by id.
func (r *OccurrenceRepository) FindByID(ctx context.Context, id string) (*models.SessionOccurrence, error) {
	query := fmt.Sprintf("SELECT %s FROM session_occurrences WHERE id = $1", occurrenceColumns)
	var occ models.SessionOccurrence
	if err := r.db.GetContext(ctx, &occ, query, id); err != nil {
		return nil, err
	}
	return &occ, nil
}

// List returns occurrences with optional filtering and pagination.
func (r *OccurrenceRepository) List(ctx context.Context, filter models.OccurrenceFilter) ([]models.SessionOccurrence, int, error) {
	base := "FROM session_occurrences WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TemplateID != "" {
		conditions = append(conditions, fmt.Sprintf("template_id = $%d", len(args)+1))
		args = append(args, filter.TemplateID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("scheduled_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY scheduled_date ASC, start_time ASC LIMIT %d OFFSET %d", occurrenceColumns, base, size, offset)
	var occurrences []models.SessionOccurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list occurrences: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count occurrences: %w", err)
	}

	return occurrences, total, nil
}

// UpdateStatus transitions an occurrence's status.
func (r *OccurrenceRepository) UpdateStatus(ctx context.Context, id string, status models.OccurrenceStatus) error {
	const query = `UPDATE session_occurrences SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update occurrence status: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/timetable-api/internal/models"
)

const templateColumns = "id, course_id, teacher_id, class_id, room, building, day_of_week, start_time, end_time, recurrence_type, effective_from, effective_to, is_active, approval_status, approved_by, approval_date, approval_notes, notes, deactivated, created_at, updated_at"

// TemplateRepository provides persistence for schedule templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// List returns templates with optional filtering and pagination.
func (r *TemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.ScheduleTemplate, int, error) {
	base := "FROM schedule_templates WHERE 1=1"
	var conditions []string
	var args []interface{}

	if !filter.IncludeDeactivated {
		conditions = append(conditions, "deactivated = FALSE")
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if filter.ApprovalStatus != "" {
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", len(args)+1))
		args = append(args, filter.ApprovalStatus)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day_of_week": true,
		"start_time":  true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "day_of_week"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", templateColumns, base, sortBy, order, size, offset)
	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list templates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count templates: %w", err)
	}

	return templates, total, nil
}

// FindByID loads a template by id.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.ScheduleTemplate, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_templates WHERE id = $1", templateColumns)
	var tpl models.ScheduleTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListCandidates returns all non-rejected, non-deactivated templates on the
// given day sharing the candidate's teacher or room. Pending templates are
// included on purpose so conflicts surface before approval, not after.
func (r *TemplateRepository) ListCandidates(ctx context.Context, day models.DayOfWeek, teacherID, room, excludeID string) ([]models.ScheduleTemplate, error) {
	conditions := []string{
		"deactivated = FALSE",
		"approval_status <> 'REJECTED'",
		"day_of_week = $1",
	}
	args := []interface{}{day}

	resource := fmt.Sprintf("teacher_id = $%d", len(args)+1)
	args = append(args, teacherID)
	if room != "" {
		resource = fmt.Sprintf("(%s OR (room IS NOT NULL AND room = $%d))", resource, len(args)+1)
		args = append(args, room)
	}
	conditions = append(conditions, resource)

	if excludeID != "" {
		conditions = append(conditions, fmt.Sprintf("id <> $%d", len(args)+1))
		args = append(args, excludeID)
	}

	query := fmt.Sprintf("SELECT %s FROM schedule_templates WHERE %s ORDER BY start_time ASC", templateColumns, strings.Join(conditions, " AND "))
	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("list conflict candidates: %w", err)
	}
	return templates, nil
}

// ListActiveByTeacher returns active templates for a teacher ordered by day/time.
func (r *TemplateRepository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.ScheduleTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM schedule_templates WHERE teacher_id = $1 AND is_active = TRUE AND deactivated = FALSE ORDER BY day_of_week ASC, start_time ASC`, templateColumns)
	var templates []models.ScheduleTemplate
	if err := r.db.SelectContext(ctx, &templates, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher templates: %w", err)
	}
	return templates, nil
}

// Create stores a new template record.
func (r *TemplateRepository) Create(ctx context.Context, tpl *models.ScheduleTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	const query = `INSERT INTO schedule_templates (id, course_id, teacher_id, class_id, room, building, day_of_week, start_time, end_time, recurrence_type, effective_from, effective_to, is_active, approval_status, approved_by, approval_date, approval_notes, notes, deactivated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	if _, err := r.db.ExecContext(ctx, query,
		tpl.ID, tpl.CourseID, tpl.TeacherID, tpl.ClassID, tpl.Room, tpl.Building,
		tpl.DayOfWeek, tpl.StartTime, tpl.EndTime, tpl.RecurrenceType,
		tpl.EffectiveFrom, tpl.EffectiveTo, tpl.IsActive, tpl.ApprovalStatus,
		tpl.ApprovedBy, tpl.ApprovalDate, tpl.ApprovalNotes, tpl.Notes,
		tpl.Deactivated, tpl.CreatedAt, tpl.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of a template record.
func (r *TemplateRepository) Update(ctx context.Context, tpl *models.ScheduleTemplate) error {
	tpl.UpdatedAt = time.Now().UTC()

	const query = `UPDATE schedule_templates SET course_id = $2, teacher_id = $3, class_id = $4, room = $5, building = $6, day_of_week = $7, start_time = $8, end_time = $9, recurrence_type = $10, effective_from = $11, effective_to = $12, notes = $13, updated_at = $14 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		tpl.ID, tpl.CourseID, tpl.TeacherID, tpl.ClassID, tpl.Room, tpl.Building,
		tpl.DayOfWeek, tpl.StartTime, tpl.EndTime, tpl.RecurrenceType,
		tpl.EffectiveFrom, tpl.EffectiveTo, tpl.Notes, tpl.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// SetApproval stamps the approval fields. Only the approval gate calls this.
func (r *TemplateRepository) SetApproval(ctx context.Context, id string, status models.ApprovalStatus, isActive bool, approvedBy string, approvalDate time.Time, notes *string) error {
	const query = `UPDATE schedule_templates SET approval_status = $2, is_active = $3, approved_by = $4, approval_date = $5, approval_notes = $6, updated_at = $7 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, isActive, approvedBy, approvalDate, notes, time.Now().UTC()); err != nil {
		return fmt.Errorf("set template approval: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a template, keeping history for generated occurrences.
func (r *TemplateRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE schedule_templates SET deactivated = TRUE, is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	return nil
}

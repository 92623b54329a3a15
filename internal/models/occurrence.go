package models

import "time"

// OccurrenceStatus tracks the lifecycle of a generated session.
type OccurrenceStatus string

const (
	OccurrenceScheduled  OccurrenceStatus = "SCHEDULED"
	OccurrenceInProgress OccurrenceStatus = "IN_PROGRESS"
	OccurrenceCompleted  OccurrenceStatus = "COMPLETED"
	OccurrenceCancelled  OccurrenceStatus = "CANCELLED"
)

var occurrenceTransitions = map[OccurrenceStatus][]OccurrenceStatus{
	OccurrenceScheduled:  {OccurrenceInProgress, OccurrenceCompleted, OccurrenceCancelled},
	OccurrenceInProgress: {OccurrenceCompleted, OccurrenceCancelled},
}

// Valid reports whether the status is a known value.
func (s OccurrenceStatus) Valid() bool {
	switch s {
	case OccurrenceScheduled, OccurrenceInProgress, OccurrenceCompleted, OccurrenceCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the status may move to the target state.
// COMPLETED and CANCELLED are terminal.
func (s OccurrenceStatus) CanTransition(to OccurrenceStatus) bool {
	for _, allowed := range occurrenceTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SessionOccurrence is one dated materialization of a schedule template.
// Course, teacher and room are copied at generation time so later template
// edits do not rewrite history.
type SessionOccurrence struct {
	ID            string           `db:"id" json:"id"`
	TemplateID    string           `db:"template_id" json:"template_id"`
	CourseID      string           `db:"course_id" json:"course_id"`
	TeacherID     string           `db:"teacher_id" json:"teacher_id"`
	ClassID       string           `db:"class_id" json:"class_id"`
	Room          *string          `db:"room" json:"room,omitempty"`
	ScheduledDate time.Time        `db:"scheduled_date" json:"scheduled_date"`
	StartTime     string           `db:"start_time" json:"start_time"`
	EndTime       string           `db:"end_time" json:"end_time"`
	Status        OccurrenceStatus `db:"status" json:"status"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// OccurrenceFilter describes query params for listing occurrences.
type OccurrenceFilter struct {
	TemplateID string
	TeacherID  string
	ClassID    string
	Status     OccurrenceStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// GeneratedOccurrence records one occurrence created during generation.
type GeneratedOccurrence struct {
	OccurrenceID string `json:"occurrence_id"`
	Date         string `json:"date"`
}

// GenerationFailure records a date whose occurrence could not be written.
type GenerationFailure struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// GenerationReport summarises one generation run. It is a partial-success
// report: a failed date never aborts the remaining dates.
type GenerationReport struct {
	TemplateID      string                `json:"template_id"`
	Created         []GeneratedOccurrence `json:"created"`
	Skipped         []string              `json:"skipped"`
	Failed          []GenerationFailure   `json:"failed,omitempty"`
	TotalCandidates int                   `json:"total_candidates"`
}

package models

import "time"

// RecurrenceType describes how often a template repeats.
type RecurrenceType string

const (
	RecurrenceWeekly   RecurrenceType = "WEEKLY"
	RecurrenceBiweekly RecurrenceType = "BIWEEKLY"
	RecurrenceCustom   RecurrenceType = "CUSTOM"
)

// Valid reports whether the cadence is a known value.
func (r RecurrenceType) Valid() bool {
	switch r {
	case RecurrenceWeekly, RecurrenceBiweekly, RecurrenceCustom:
		return true
	}
	return false
}

// ApprovalStatus tracks the sign-off state of a template.
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "PENDING"
	ApprovalApproved     ApprovalStatus = "APPROVED"
	ApprovalRejected     ApprovalStatus = "REJECTED"
	ApprovalAutoApproved ApprovalStatus = "AUTO_APPROVED"
)

// approvalTransitions is the closed transition table for the approval gate.
// APPROVED, AUTO_APPROVED and REJECTED are terminal.
var approvalTransitions = map[ApprovalStatus][]ApprovalStatus{
	ApprovalPending: {ApprovalApproved, ApprovalRejected},
}

// CanTransition reports whether the approval gate allows moving to the target state.
func (s ApprovalStatus) CanTransition(to ApprovalStatus) bool {
	for _, allowed := range approvalTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Eligible reports whether a template in this state may produce occurrences.
func (s ApprovalStatus) Eligible() bool {
	return s == ApprovalApproved || s == ApprovalAutoApproved
}

// ScheduleTemplate is a recurring weekly teaching commitment.
type ScheduleTemplate struct {
	ID             string         `db:"id" json:"id"`
	CourseID       string         `db:"course_id" json:"course_id"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	ClassID        string         `db:"class_id" json:"class_id"`
	Room           *string        `db:"room" json:"room,omitempty"`
	Building       *string        `db:"building" json:"building,omitempty"`
	DayOfWeek      DayOfWeek      `db:"day_of_week" json:"day_of_week"`
	StartTime      string         `db:"start_time" json:"start_time"`
	EndTime        string         `db:"end_time" json:"end_time"`
	RecurrenceType RecurrenceType `db:"recurrence_type" json:"recurrence_type"`
	EffectiveFrom  time.Time      `db:"effective_from" json:"effective_from"`
	EffectiveTo    *time.Time     `db:"effective_to" json:"effective_to,omitempty"`
	IsActive       bool           `db:"is_active" json:"is_active"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"approval_status"`
	ApprovedBy     *string        `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalDate   *time.Time     `db:"approval_date" json:"approval_date,omitempty"`
	ApprovalNotes  *string        `db:"approval_notes" json:"approval_notes,omitempty"`
	Notes          *string        `db:"notes" json:"notes,omitempty"`
	Deactivated    bool           `db:"deactivated" json:"deactivated"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Window returns the template's weekly time window.
func (t *ScheduleTemplate) Window() (TimeWindow, error) {
	return NewTimeWindow(t.DayOfWeek, t.StartTime, t.EndTime)
}

// RoomValue returns the room identifier or "" when unset.
func (t *ScheduleTemplate) RoomValue() string {
	if t.Room == nil {
		return ""
	}
	return *t.Room
}

// TemplateFilter describes query params for listing templates.
type TemplateFilter struct {
	CourseID           string
	TeacherID          string
	ClassID            string
	Room               string
	DayOfWeek          DayOfWeek
	ApprovalStatus     ApprovalStatus
	ActiveOnly         bool
	IncludeDeactivated bool
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}

// ConflictDimension classifies the shared resource causing a conflict.
type ConflictDimension string

const (
	ConflictTeacher ConflictDimension = "TEACHER"
	ConflictRoom    ConflictDimension = "ROOM"
)

// TemplateConflict describes an existing template colliding with a candidate.
type TemplateConflict struct {
	TemplateID string            `json:"template_id"`
	CourseID   string            `json:"course_id"`
	TeacherID  string            `json:"teacher_id"`
	Room       string            `json:"room,omitempty"`
	DayOfWeek  DayOfWeek         `json:"day_of_week"`
	StartTime  string            `json:"start_time"`
	EndTime    string            `json:"end_time"`
	Dimension  ConflictDimension `json:"dimension"`
}

// TemplateConflicts groups detected collisions by dimension. A candidate may
// carry teacher conflicts, room conflicts, or both at once.
type TemplateConflicts struct {
	Teacher []TemplateConflict `json:"teacher_conflicts"`
	Room    []TemplateConflict `json:"room_conflicts"`
}

// Empty reports whether no conflict was found.
func (c TemplateConflicts) Empty() bool {
	return len(c.Teacher) == 0 && len(c.Room) == 0
}

// All returns every conflict regardless of dimension.
func (c TemplateConflicts) All() []TemplateConflict {
	out := make([]TemplateConflict, 0, len(c.Teacher)+len(c.Room))
	out = append(out, c.Teacher...)
	out = append(out, c.Room...)
	return out
}

// TemplateConflictError is returned when a template write collides with
// existing templates.
type TemplateConflictError struct {
	Message   string            `json:"message"`
	Conflicts TemplateConflicts `json:"conflicts"`
}

// Error implements the error interface.
func (e *TemplateConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

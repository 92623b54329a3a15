package recurrence

import (
	"time"

	"github.com/campushq/timetable-api/internal/models"
)

// ExceptionSource supplies excluded dates for CUSTOM cadence templates. It is
// an external collaborator; a nil source makes CUSTOM behave as WEEKLY.
type ExceptionSource interface {
	Excluded(templateID string, date time.Time) bool
}

// Expander turns a template plus a date range into the ordered set of
// calendar dates an occurrence should exist on.
type Expander struct {
	exceptions ExceptionSource
}

// NewExpander builds an expander. exceptions may be nil.
func NewExpander(exceptions ExceptionSource) *Expander {
	return &Expander{exceptions: exceptions}
}

// Expand returns every date in [rangeStart, rangeEnd] that matches the
// template's weekday and cadence, clamped to the template's effective window.
// Dates are midnight-normalized, strictly increasing and free of duplicates.
// An empty clamped range yields an empty result, not an error.
func (e *Expander) Expand(tpl models.ScheduleTemplate, rangeStart, rangeEnd time.Time) []time.Time {
	weekday, ok := tpl.DayOfWeek.Weekday()
	if !ok {
		return nil
	}

	start := truncateDate(rangeStart)
	end := truncateDate(rangeEnd)
	if from := truncateDate(tpl.EffectiveFrom); from.After(start) {
		start = from
	}
	if tpl.EffectiveTo != nil {
		if to := truncateDate(*tpl.EffectiveTo); to.Before(end) {
			end = to
		}
	}
	if end.Before(start) {
		return nil
	}

	first := nextWeekday(start, weekday)
	if first.After(end) {
		return nil
	}

	// Biweekly parity is anchored at the first matching date on/after
	// effectiveFrom, so results do not depend on the requested range.
	anchor := nextWeekday(truncateDate(tpl.EffectiveFrom), weekday)

	var dates []time.Time
	for d := first; !d.After(end); d = d.AddDate(0, 0, 7) {
		switch tpl.RecurrenceType {
		case models.RecurrenceBiweekly:
			if weeksBetween(anchor, d)%2 != 0 {
				continue
			}
		case models.RecurrenceCustom:
			if e.exceptions != nil && e.exceptions.Excluded(tpl.ID, d) {
				continue
			}
		}
		dates = append(dates, d)
	}
	return dates
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextWeekday(from time.Time, weekday time.Weekday) time.Time {
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	return from.AddDate(0, 0, offset)
}

func weeksBetween(a, b time.Time) int {
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days / 7
}

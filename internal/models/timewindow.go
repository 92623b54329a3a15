package models

import (
	"fmt"
	"time"
)

// DayOfWeek enumerates the seven weekdays used by schedule templates.
type DayOfWeek string

const (
	DayMonday    DayOfWeek = "MONDAY"
	DayTuesday   DayOfWeek = "TUESDAY"
	DayWednesday DayOfWeek = "WEDNESDAY"
	DayThursday  DayOfWeek = "THURSDAY"
	DayFriday    DayOfWeek = "FRIDAY"
	DaySaturday  DayOfWeek = "SATURDAY"
	DaySunday    DayOfWeek = "SUNDAY"
)

var dayToWeekday = map[DayOfWeek]time.Weekday{
	DayMonday:    time.Monday,
	DayTuesday:   time.Tuesday,
	DayWednesday: time.Wednesday,
	DayThursday:  time.Thursday,
	DayFriday:    time.Friday,
	DaySaturday:  time.Saturday,
	DaySunday:    time.Sunday,
}

// Valid reports whether the value is one of the seven known days.
func (d DayOfWeek) Valid() bool {
	_, ok := dayToWeekday[d]
	return ok
}

var dayOrder = map[DayOfWeek]int{
	DayMonday:    0,
	DayTuesday:   1,
	DayWednesday: 2,
	DayThursday:  3,
	DayFriday:    4,
	DaySaturday:  5,
	DaySunday:    6,
}

// Order returns the Monday-first sort position of the day.
func (d DayOfWeek) Order() int {
	return dayOrder[d]
}

// Weekday maps the day onto the standard library weekday.
func (d DayOfWeek) Weekday() (time.Weekday, bool) {
	wd, ok := dayToWeekday[d]
	return wd, ok
}

// DayFromWeekday converts a standard library weekday into a DayOfWeek.
func DayFromWeekday(wd time.Weekday) DayOfWeek {
	for day, w := range dayToWeekday {
		if w == wd {
			return day
		}
	}
	return ""
}

// ParseClock parses an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q, expected HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight back to "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// TimeWindow is a wall-clock interval on a specific weekday. Start and End
// are minutes since midnight with End exclusive, so back-to-back windows
// never overlap.
type TimeWindow struct {
	Day   DayOfWeek
	Start int
	End   int
}

// NewTimeWindow builds a window from "HH:MM" boundaries.
func NewTimeWindow(day DayOfWeek, start, end string) (TimeWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TimeWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return TimeWindow{}, err
	}
	return TimeWindow{Day: day, Start: s, End: e}, nil
}

// Overlaps reports whether two windows collide. Comparison is strict, so a
// window ending exactly when another starts does not overlap it.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	if w.Day != o.Day {
		return false
	}
	return w.Start < o.End && o.Start < w.End
}

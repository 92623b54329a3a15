package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60+30, minutes)

	_, err = ParseClock("24:00")
	assert.Error(t, err)

	_, err = ParseClock("nope")
	assert.Error(t, err)

	assert.Equal(t, "07:05", FormatClock(7*60+5))
}

func TestTimeWindowOverlaps(t *testing.T) {
	a, err := NewTimeWindow(DayMonday, "09:00", "10:30")
	require.NoError(t, err)
	b, err := NewTimeWindow(DayMonday, "10:00", "11:00")
	require.NoError(t, err)

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a), "overlap must be symmetric")

	backToBack, err := NewTimeWindow(DayMonday, "10:30", "11:30")
	require.NoError(t, err)
	assert.False(t, a.Overlaps(backToBack), "adjacent windows never overlap")
	assert.False(t, backToBack.Overlaps(a))

	otherDay, err := NewTimeWindow(DayTuesday, "09:00", "10:30")
	require.NoError(t, err)
	assert.False(t, a.Overlaps(otherDay))
}

func TestDayWeekdayMapping(t *testing.T) {
	wd, ok := DayMonday.Weekday()
	require.True(t, ok)
	assert.Equal(t, time.Monday, wd)

	_, ok = DayOfWeek("FUNDAY").Weekday()
	assert.False(t, ok)

	for day, weekday := range dayToWeekday {
		assert.Equal(t, day, DayFromWeekday(weekday), "round trip for %s", day)
	}
	assert.Equal(t, DayOfWeek(""), DayFromWeekday(time.Weekday(42)))
}

func TestApprovalTransitions(t *testing.T) {
	assert.True(t, ApprovalPending.CanTransition(ApprovalApproved))
	assert.True(t, ApprovalPending.CanTransition(ApprovalRejected))
	assert.False(t, ApprovalRejected.CanTransition(ApprovalApproved), "rejected is terminal")
	assert.False(t, ApprovalApproved.CanTransition(ApprovalRejected))

	assert.True(t, ApprovalApproved.Eligible())
	assert.True(t, ApprovalAutoApproved.Eligible())
	assert.False(t, ApprovalPending.Eligible())
	assert.False(t, ApprovalRejected.Eligible())
}

func TestOccurrenceTransitions(t *testing.T) {
	assert.True(t, OccurrenceScheduled.CanTransition(OccurrenceInProgress))
	assert.True(t, OccurrenceInProgress.CanTransition(OccurrenceCompleted))
	assert.False(t, OccurrenceCompleted.CanTransition(OccurrenceScheduled))
	assert.False(t, OccurrenceCancelled.CanTransition(OccurrenceInProgress))
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.Can(CapTemplateWrite))
	assert.False(t, RoleAdmin.Can(CapTemplateApprove), "approval is a manager sign-off")
	assert.True(t, RoleManager.Can(CapTemplateApprove))
	assert.False(t, RoleTeacher.Can(CapTemplateWrite))
	assert.True(t, RoleSuperAdmin.AtLeast(RoleManager))
	assert.False(t, UserRole("GHOST").AtLeast(RoleTeacher))
}

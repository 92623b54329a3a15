package models

// UserRole is the closed set of roles known to the RBAC layer.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleManager    UserRole = "MANAGER"
	RoleTeacher    UserRole = "TEACHER"
)

// Capability names a single permitted operation. Permission checks are done
// against capability sets rather than role-name matching.
type Capability string

const (
	CapTemplateRead       Capability = "template:read"
	CapTemplateWrite      Capability = "template:write"
	CapTemplateApprove    Capability = "template:approve"
	CapOccurrenceGenerate Capability = "occurrence:generate"
	CapOccurrenceUpdate   Capability = "occurrence:update"
	CapTimetableExport    Capability = "timetable:export"
)

// roleLevels is the explicit hierarchy; higher outranks lower.
var roleLevels = map[UserRole]int{
	RoleSuperAdmin: 40,
	RoleAdmin:      30,
	RoleManager:    20,
	RoleTeacher:    10,
}

var roleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleSuperAdmin: capSet(
		CapTemplateRead, CapTemplateWrite, CapTemplateApprove,
		CapOccurrenceGenerate, CapOccurrenceUpdate, CapTimetableExport,
	),
	RoleAdmin: capSet(
		CapTemplateRead, CapTemplateWrite,
		CapOccurrenceGenerate, CapOccurrenceUpdate, CapTimetableExport,
	),
	RoleManager: capSet(
		CapTemplateRead, CapTemplateApprove, CapTimetableExport,
	),
	RoleTeacher: capSet(
		CapTemplateRead, CapTimetableExport,
	),
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Valid reports whether the role is part of the closed set.
func (r UserRole) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the hierarchy level, 0 for unknown roles.
func (r UserRole) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether the role outranks or equals another role.
func (r UserRole) AtLeast(other UserRole) bool {
	return r.Level() >= other.Level() && r.Level() > 0
}

// Can reports whether the role holds the capability.
func (r UserRole) Can(c Capability) bool {
	_, ok := roleCapabilities[r][c]
	return ok
}

package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionAttendanceRead allows viewing attendance sheets and their history.
	PermissionAttendanceRead Permission = "attendance:read"

	// PermissionAttendanceWrite allows submitting and editing attendance sheets.
	PermissionAttendanceWrite Permission = "attendance:write"

	// PermissionAttendanceManageAll lifts the "own classes only" restriction and the
	// teacher edit window, and allows deleting sheets.
	PermissionAttendanceManageAll Permission = "attendance:manage_all"

	// PermissionClassesRead allows viewing classes and rosters.
	PermissionClassesRead Permission = "classes:read"

	// PermissionClassesWrite allows creating, renaming, reassigning and deleting classes.
	PermissionClassesWrite Permission = "classes:write"

	// PermissionStudentsWrite allows roster changes, transfers, archiving and restoring.
	PermissionStudentsWrite Permission = "students:write"

	// PermissionUsersRead allows viewing user accounts.
	PermissionUsersRead Permission = "users:read"

	// PermissionUsersWrite allows creating, updating and deleting user accounts.
	PermissionUsersWrite Permission = "users:write"

	// PermissionHolidaysWrite allows managing the holiday calendar.
	PermissionHolidaysWrite Permission = "holidays:write"

	// PermissionReportsRead allows viewing reports, calendars and the dashboard.
	PermissionReportsRead Permission = "reports:read"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionAttendanceRead,
	PermissionAttendanceWrite,
	PermissionAttendanceManageAll,
	PermissionClassesRead,
	PermissionClassesWrite,
	PermissionStudentsWrite,
	PermissionUsersRead,
	PermissionUsersWrite,
	PermissionHolidaysWrite,
	PermissionReportsRead,
}

var teacherPermissions = []Permission{
	PermissionAttendanceRead,
	PermissionAttendanceWrite,
	PermissionClassesRead,
	PermissionReportsRead,
}

// Role is the account type of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// Permissions returns the permission codes granted to the role.
func (r Role) Permissions() []string {
	var perms []Permission
	switch r {
	case RoleAdmin:
		perms = AllPermissions
	case RoleTeacher:
		perms = teacherPermissions
	}

	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, string(p))
	}
	return codes
}

// HasPermission reports whether the permission list contains p.
func HasPermission(perms []string, p Permission) bool {
	for _, code := range perms {
		if code == string(p) {
			return true
		}
	}
	return false
}

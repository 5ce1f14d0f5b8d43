package session

import "strings"

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Checker (registers attendance on behalf of teachers)
	RoleChecker = "checker:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	CheckerRoles = []string{RoleChecker}
	StudentRoles = []string{RoleStudent}

	rolePriorities = map[string]int{
		// Admins: 40 - 31
		RoleAdminOwner:     40,
		RoleAdminPrincipal: 39,
		RoleAdmin:          31,

		// Teachers: 30 - 21
		RoleTeacher: 21,

		// Checkers: 20 - 11
		RoleChecker: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// Session identifies the caller of an operation.
// It is passed explicitly to every operation that needs it; nothing reads it from global state.
type Session struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

func New(userID string, roles ...string) Session {
	return Session{UserID: userID, Roles: roles}
}

func (s Session) IsAnonymous() bool {
	return s.UserID == ""
}

func (s Session) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s Session) IsAdmin() bool {
	return s.RoleStartsWith(RoleAdmin)
}

func (s Session) IsTeacher() bool {
	return s.RoleStartsWith(RoleTeacher)
}

func (s Session) IsChecker() bool {
	return s.RoleStartsWith(RoleChecker)
}

func (s Session) IsStudent() bool {
	return s.RoleStartsWith(RoleStudent)
}

// PrimaryRole returns the session's highest priority role, or "" if it has none.
func (s Session) PrimaryRole() string {
	var primary string
	var max int
	for _, role := range s.Roles {
		if p := RolePriority(role); p > max {
			primary, max = role, p
		}
	}
	return primary
}

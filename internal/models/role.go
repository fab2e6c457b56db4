package models

import "strings"

// Role enumerates the closed set of roles a principal can hold.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleDepartment Role = "Department"
	RoleCompany    Role = "Company"
	RoleStudent    Role = "Student"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleDepartment, RoleCompany, RoleStudent}

// ParseRole maps a case-insensitive name to a Role.
func ParseRole(value string) (Role, bool) {
	trimmed := strings.TrimSpace(value)
	for _, role := range Roles {
		if strings.EqualFold(string(role), trimmed) {
			return role, true
		}
	}
	return "", false
}

// CanValidate reports whether the role may validate activity records.
func (r Role) CanValidate() bool {
	switch r {
	case RoleAdmin, RoleDepartment, RoleCompany:
		return true
	default:
		return false
	}
}

// IsStaff reports whether the role manages students and places.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleDepartment
}

func (r Role) String() string {
	return string(r)
}

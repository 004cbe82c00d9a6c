// Package authroles maps identity provider groups onto application roles.
package authroles

import (
	"strings"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
)

// StaticRoleMapper grants admin to members of AdminGroup and the doctor
// (user) role to members of UserGroup. Group names compare case-insensitively.
// Everyone else is a guest who may submit and share their own records but
// cannot use the patient registry.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

// Map returns the highest role any of groups grants.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	admin := normalize(m.AdminGroup)
	user := normalize(m.UserGroup)

	role := domainauth.RoleGuest
	for _, g := range groups {
		switch normalize(g) {
		case "":
		case admin:
			return domainauth.RoleAdmin
		case user:
			role = domainauth.RoleUser
		}
	}
	return role
}

func normalize(group string) string {
	return strings.ToLower(strings.TrimSpace(group))
}

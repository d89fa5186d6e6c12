package authz

import "fmt"

// Role is the closed set of actor roles. Parsing is the only place a raw
// string becomes a Role; everything downstream switches exhaustively.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleQa      Role = "qa"
	RoleDev     Role = "dev"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleQa, RoleDev:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleQa, RoleDev:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// AllRoles in declaration order, used by validation messages and seeding.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleManager, RoleQa, RoleDev}
}

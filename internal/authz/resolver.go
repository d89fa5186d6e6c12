package authz

// ProjectMembership is the slice of a project the resolver needs: the three
// role-specific member sets, by user id.
type ProjectMembership struct {
	Managers   []int64
	Qas        []int64
	Developers []int64
}

// ProjectScope is the visibility filter for project listings. All short-cuts
// every check; otherwise the store restricts to projects whose MemberRole set
// contains UserID.
type ProjectScope struct {
	All        bool
	UserID     int64
	MemberRole Role
}

// BugMutation describes what a principal may change on a bug. StatusOnly is
// the developer case: only the status field, nothing else.
type BugMutation struct {
	StatusOnly bool
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// ScopeForProjects computes the read filter for project (and transitively bug)
// listings.
func ScopeForProjects(p Principal) ProjectScope {
	switch p.Role {
	case RoleAdmin:
		return ProjectScope{All: true}
	case RoleManager, RoleQa, RoleDev:
		return ProjectScope{UserID: p.UserID, MemberRole: p.Role}
	default:
		// unreachable for parsed roles; an empty scope matches nothing
		return ProjectScope{UserID: p.UserID, MemberRole: p.Role}
	}
}

// CanSeeProject reports whether the principal may read the project. Bug
// visibility derives from this transitively.
func CanSeeProject(p Principal, m ProjectMembership) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return contains(m.Managers, p.UserID)
	case RoleQa:
		return contains(m.Qas, p.UserID)
	case RoleDev:
		return contains(m.Developers, p.UserID)
	default:
		return false
	}
}

// CanCreateProject: admins anywhere, managers for their own projects.
func CanCreateProject(p Principal) bool {
	switch p.Role {
	case RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

// CanMutateProject reports whether the principal may update or delete the
// project.
func CanMutateProject(p Principal, m ProjectMembership) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return contains(m.Managers, p.UserID)
	default:
		return false
	}
}

// CanCreateBug: admins anywhere; managers and qas within projects they belong
// to under the matching role.
func CanCreateBug(p Principal, m ProjectMembership) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleManager:
		return contains(m.Managers, p.UserID)
	case RoleQa:
		return contains(m.Qas, p.UserID)
	default:
		return false
	}
}

// CanDeleteBug: admins, and managers or qas of the owning project.
func CanDeleteBug(p Principal, m ProjectMembership) bool {
	return CanCreateBug(p, m)
}

// CanMutateBug resolves update rights on a bug owned by a project with
// membership m and assigned to assignedDeveloper (nil when unassigned).
// ok=false means no mutation at all.
func CanMutateBug(p Principal, m ProjectMembership, assignedDeveloper *int64) (BugMutation, bool) {
	switch p.Role {
	case RoleAdmin:
		return BugMutation{}, true
	case RoleManager:
		return BugMutation{}, contains(m.Managers, p.UserID)
	case RoleQa:
		return BugMutation{}, contains(m.Qas, p.UserID)
	case RoleDev:
		if assignedDeveloper != nil && *assignedDeveloper == p.UserID {
			return BugMutation{StatusOnly: true}, true
		}
		return BugMutation{}, false
	default:
		return BugMutation{}, false
	}
}

// CanManageUsers gates user listing and deletion.
func CanManageUsers(p Principal) bool {
	return p.Role == RoleAdmin
}

// CanUpdateUser: self-service edits plus admin edits of anyone.
func CanUpdateUser(p Principal, targetID int64) bool {
	return p.Role == RoleAdmin || p.UserID == targetID
}

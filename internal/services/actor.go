package services

// Role comes from the identity provider and is trusted as-is.
type Role string

const (
	RoleCitizen      Role = "citizen"
	RoleInvestigator Role = "investigator"
	RoleModerator    Role = "moderator"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleInvestigator, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// CanReview reports whether the actor may move reports through the
// verification workflow.
func (a Actor) CanReview() bool {
	return a.ID != "" && (a.Role == RoleInvestigator || a.Role == RoleModerator || a.Role == RoleAdmin)
}

func (a Actor) CanCurate() bool {
	return a.ID != "" && (a.Role == RoleModerator || a.Role == RoleAdmin)
}

func (a Actor) IsAdmin() bool {
	return a.ID != "" && a.Role == RoleAdmin
}

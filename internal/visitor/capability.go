package visitor

// Role identifies an actor's position in the society.
type Role string

// Role constants, mirroring the platform's role model.
const (
	RoleResident Role = "RESIDENT"
	RoleGuard    Role = "GUARD"
	RoleManager  Role = "MANAGER"
	RoleAdmin    Role = "ADMIN"
)

// Actor is the identity performing a gate operation.
type Actor struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name,omitempty"`
	Roles  []Role `json:"roles"`
}

// HasRole reports whether the actor holds the given role.
func (a Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanApprove reports whether the actor may approve or reject a pending
// visitor. Only residents of the destination flat decide; admins may
// override.
func (a Actor) CanApprove() bool {
	return a.HasRole(RoleResident) || a.HasRole(RoleAdmin)
}

// CanCheckOut reports whether the actor may record a checkout.
func (a Actor) CanCheckOut() bool {
	return a.HasRole(RoleGuard) || a.HasRole(RoleResident) ||
		a.HasRole(RoleManager) || a.HasRole(RoleAdmin)
}

// CanCancel reports whether the actor may cancel a visit before entry.
// Cancellation is a manager-level override.
func (a Actor) CanCancel() bool {
	return a.HasRole(RoleManager) || a.HasRole(RoleAdmin)
}

package model

// Role determines which dashboard and booking actions a user can reach.
// A freshly registered user has RoleNone until they pick one of the other
// three; the choice is permanent.
type Role string

const (
	RoleNone       Role = "NONE"
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
	RoleBoth       Role = "BOTH"
)

// Selectable reports whether r may be chosen on the role selection screen.
func (r Role) Selectable() bool {
	switch r {
	case RoleClient, RoleFreelancer, RoleBoth:
		return true
	}
	return false
}

// CanHire reports whether the role may act as the client side of a booking.
func (r Role) CanHire() bool { return r == RoleClient || r == RoleBoth }

// CanFreelance reports whether the role may offer services and receive bookings.
func (r Role) CanFreelance() bool { return r == RoleFreelancer || r == RoleBoth }

// DefaultActiveRole returns the lens a freshly started session views the
// dashboard through. BOTH users start as clients.
func DefaultActiveRole(r Role) Role {
	if r == RoleBoth {
		return RoleClient
	}
	return r
}

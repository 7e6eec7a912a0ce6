package shared

import "github.com/google/uuid"

// Role identifies the capability class of a caller
type Role string

const (
	RoleOperator Role = "OPERATOR" // platform operator, administers the ledger
	RoleBuyer    Role = "BUYER"    // owes face value at maturity
	RoleSupplier Role = "SUPPLIER" // receives early payment
	RoleProvider Role = "PROVIDER" // liquidity provider holding pool shares
)

// IsValid checks if the role is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleOperator, RoleBuyer, RoleSupplier, RoleProvider:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller of a mutating operation. Every gated
// operation checks the actor at its top before touching state.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsOperator returns true for platform operators
func (a Actor) IsOperator() bool {
	return a.Role == RoleOperator
}

// Is returns true when the actor is the given party
func (a Actor) Is(party uuid.UUID) bool {
	return a.ID == party
}

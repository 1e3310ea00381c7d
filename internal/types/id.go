// README: Shared identifier and actor value types used across modules.
package types

type ID string

func (id ID) String() string {
	return string(id)
}

type Role string

const (
	RoleStudent Role = "student"
	RoleDriver  Role = "driver"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleDriver
}

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	ID   ID
	Role Role
}

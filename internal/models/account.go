package models

// Role identifies the kind of account behind a token.
type Role string

// Role constants define the supported account roles.
const (
	// RoleCA is an accountant user managing multiple clients.
	RoleCA Role = "CA"
	// RoleClient is a client account belonging to a CA.
	RoleClient Role = "Client"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleCA || r == RoleClient
}

// Account is the polymorphic view shared by users and clients.
// Handlers authorize against it instead of branching on concrete types.
type Account struct {
	ID       uint64 // Row ID in the backing table.
	Role     Role   // CA or Client.
	IsActive bool   // Whether the account may authenticate.
}

// CanManageClients reports whether the account may mutate client records.
func (a Account) CanManageClients() bool {
	return a.Role == RoleCA
}

// OwnsClientScope reports whether the account is the client identified by id.
func (a Account) OwnsClientScope(id uint64) bool {
	return a.Role == RoleClient && a.ID == id
}

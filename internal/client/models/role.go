package models

// Role classifies a user's authorization level, derived from the provider's
// user_roles table.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Admin reports whether the role grants administrative access. Unknown role
// values never do.
func (r Role) Admin() bool { return r == RoleAdmin }

package domain

// Role enumerates the roles a credential may carry.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
	RoleUser    Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupport, RoleUser:
		return true
	}
	return false
}

// IdentityClaim is the authenticated identity extracted from a credential.
// It is produced once per connection attempt and immutable afterwards.
type IdentityClaim struct {
	UserID   int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

package identity

import "time"

// Roles assignable to a user.
const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

// User represents a registered storefront account.
type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

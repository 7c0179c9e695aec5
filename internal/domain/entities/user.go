package entities

// Account roles
const (
	RoleUser   = "user"
	RoleClient = "client"
)

// User is a portal account. Clients (service providers) carry a ServiceType that is
// matched by name against Service.Name; it is not a foreign key.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-" db:"password_hash"`
	Role         string `json:"role" db:"role"`
	ServiceType  string `json:"service_type,omitempty" db:"service_type"`
}

// IsClient reports whether the account has the client role
func (u *User) IsClient() bool {
	return u.Role == RoleClient
}

// ValidRole reports whether role is one of the known account roles
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleClient
}

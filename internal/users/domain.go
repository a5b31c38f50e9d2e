package users

import "time"

// User represents a user account for management. RoleName is the single
// role the account holds; authorization derives from that role's permission
// set, never from per-user grants.
type User struct {
	ID        int64
	Email     string
	Name      string
	RoleName  string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserInput carries the fields needed to create an account.
type NewUserInput struct {
	Email    string
	Name     string
	Password string
	RoleName string
}

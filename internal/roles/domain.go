package roles

import "time"

// Role is a role record together with its usage counts, as shown on the
// role management screen.
type Role struct {
	ID              int64
	Name            string
	Description     string
	PermissionCount int
	TotalUsers      int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

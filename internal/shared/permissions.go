package shared

// Well-known permission keys for the platform's own administration surfaces.
// Keys follow the resource:ACTION convention used across the catalog.
const (
	PermUserRead   = "user:READ"
	PermUserCreate = "user:CREATE"
	PermUserUpdate = "user:UPDATE"

	PermRoleRead   = "role:READ"
	PermRoleUpdate = "role:UPDATE"

	PermCourseRead    = "course:READ"
	PermCourseUpdate  = "course:UPDATE"
	PermCoursePublish = "course:PUBLISH"

	PermPaymentRead = "payment:READ"
)

// CoreScopes lists the permissions consumed by the admin surfaces in this
// repository. The catalog itself is open ended; these are only the keys the
// routing layer references directly.
func CoreScopes() []string {
	return []string{
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermRoleRead,
		PermRoleUpdate,
	}
}

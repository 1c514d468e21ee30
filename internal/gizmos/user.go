package gizmos

// Role is a system user's permission role, recovered from the original
// source's SystemUser.role (SPEC_FULL.md supplemented feature 1).
type Role string

const (
	RoleDispatcher Role = "dispatcher"
	RoleVendor     Role = "vendor"
	RoleAdmin      Role = "admin"
)

// User is a pre-authenticated principal. Authentication, password hashing
// and token issuance stay out of scope per spec.md §1 — this is a plain
// record looked up by a caller that has already authenticated the request,
// not an auth subsystem.
type User struct {
	ID          int64
	Username    string
	Role        Role
	DisplayName string
	Active      bool
	VenCode     *string // set when Role == RoleVendor
	PushToken   *string // best-effort notification recipient token
}

// IsVendor reports whether this user represents a specific vendor account.
func (u *User) IsVendor() bool {
	return u != nil && u.Role == RoleVendor && u.VenCode != nil
}

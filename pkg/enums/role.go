package enums

// Role is the derived classification driving default feature visibility and
// edit rights. It is never stored; it is computed from a member profile.
type Role string

const (
	RoleFree    Role = "free"
	RoleBasic   Role = "basic"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

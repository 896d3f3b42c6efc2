package rbac

// Role names carried in access tokens.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleRep        = "rep"
	RoleSuperAdmin = "super_admin"
)

// Dialer lists every role allowed to run sessions; Supervisors may reshape the pool.
var (
	Dialer      = []string{RoleOwner, RoleManager, RoleRep}
	Supervisors = []string{RoleOwner, RoleManager}
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func Known(role string) bool {
	switch role {
	case RoleOwner, RoleManager, RoleRep, RoleSuperAdmin:
		return true
	}
	return false
}

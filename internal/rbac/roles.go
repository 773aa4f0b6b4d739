package rbac

// Role names. Keep these stable; they are part of auth contracts.
const (
	// RoleOperator can review and approve top-ups.
	RoleOperator = "operator"
	// RoleAdmin additionally manages users, products and rates.
	RoleAdmin = "admin"
	// RoleSuperAdmin bypasses all role checks.
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func Valid(role string) bool {
	switch role {
	case RoleOperator, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

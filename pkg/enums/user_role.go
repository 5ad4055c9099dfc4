package enums

// UserRole is carried in access tokens and gates the admin surface.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
	// UserRoleService identifies internal callers such as the order service.
	UserRoleService UserRole = "service"
)

var userRoles = []UserRole{UserRoleCustomer, UserRoleAdmin, UserRoleService}

func (r UserRole) IsValid() bool { return oneOf(r, userRoles) }

// ParseUserRole accepts roles in any case, e.g. from an identity provider claim.
func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, userRoles)
}

package orders

// UserRole is the user's role
type UserRole = string

const (
	// RoleCustomer is the default role for app users
	RoleCustomer UserRole = "customer"
	// RoleAdmin covers back office operators who drive order transitions
	RoleAdmin UserRole = "admin"
)

// roleHierarchy defines role levels for comparison
var roleHierarchy = map[UserRole]int{
	RoleCustomer: 1,
	RoleAdmin:    2,
}

// ParseRole converts a string to a UserRole, returning the role and whether it was valid
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	_, ok := roleHierarchy[role]
	return role, ok
}

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	_, ok := roleHierarchy[r]
	return ok
}

// RoleAtLeast checks if role meets the minimum required role level
func RoleAtLeast(role, minRole UserRole) bool {
	level, ok := roleHierarchy[role]
	if !ok {
		return false
	}
	minLevel, ok := roleHierarchy[minRole]
	if !ok {
		return false
	}
	return level >= minLevel
}

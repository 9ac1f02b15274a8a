package constants

const (
	Investor  = "investor"
	Homeowner = "homeowner"
	Admin     = "admin"
)

// ValidRoles is the set of allowed values for an account role.
var ValidRoles = []string{Investor, Homeowner, Admin}

// SelfAssignableRoles may be chosen at signup; admin is granted out of band.
var SelfAssignableRoles = []string{Investor, Homeowner}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	return contains(ValidRoles, role)
}

// IsSelfAssignable returns true if role may be requested at signup.
func IsSelfAssignable(role string) bool {
	return contains(SelfAssignableRoles, role)
}

func contains(list []string, v string) bool {
	for _, r := range list {
		if r == v {
			return true
		}
	}
	return false
}

package constants

import "stockhouse-backend/internal/pkg/constants"

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:       {constants.Investor, constants.Homeowner, constants.Admin},
	BuyShares:      {constants.Investor, constants.Homeowner, constants.Admin},
	TransferShares: {constants.Investor, constants.Homeowner, constants.Admin},
	SyncValuation:  {constants.Investor, constants.Homeowner, constants.Admin},
	AddFunds:       {constants.Investor, constants.Homeowner, constants.Admin},
	IngestListings: {constants.Admin},
	ClearListings:  {constants.Admin},
	ViewAnyAccount: {constants.Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

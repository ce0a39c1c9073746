package auth

import "context"

const (
	RoleAdmin             = "admin"
	RoleComplianceOfficer = "compliance_officer"
	RoleAnalyst           = "analyst"
)

const (
	PermComplianceRead      = "compliance.read"
	PermComplianceManage    = "compliance.manage"
	PermComplianceRetention = "compliance.retention"
	PermComplianceRequests  = "compliance.requests"
)

var DefaultPermissions = []string{
	PermComplianceRead,
	PermComplianceManage,
	PermComplianceRetention,
	PermComplianceRequests,
}

var RolePermissions = map[string][]string{
	RoleAdmin: DefaultPermissions,
	RoleComplianceOfficer: {
		PermComplianceRead,
		PermComplianceManage,
		PermComplianceRequests,
	},
	RoleAnalyst: {
		PermComplianceRead,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(ctx context.Context, roleName, permission string) (bool, error) {
	for _, perm := range RolePermissions[roleName] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

func ValidRole(roleName string) bool {
	_, ok := RolePermissions[roleName]
	return ok
}

package service

import (
	"strings"
)

// Role is the closed set of CRM roles. Anything else confers no permission.
type Role string

const (
	RoleSalesRep                   Role = "SalesRep"
	RoleBusinessDevelopmentManager Role = "BusinessDevelopmentManager"
	RoleSalesManager               Role = "SalesManager"
	RoleAdmin                      Role = "Admin"
)

// Action is a contract mutation subject to the policy gate.
type Action string

const (
	ActionCreate          Action = "create"
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionActivate        Action = "activate"
	ActionCancel          Action = "cancel"
	ActionCreateRenewal   Action = "create_renewal"
	ActionCompleteRenewal Action = "complete_renewal"
)

var roleAliases = map[string]Role{
	"salesrep":                   RoleSalesRep,
	"businessdevelopmentmanager": RoleBusinessDevelopmentManager,
	"bdm":                        RoleBusinessDevelopmentManager,
	"salesmanager":               RoleSalesManager,
	"admin":                      RoleAdmin,
}

// ParseRole canonicalises case and separators ("sales_manager", "Sales Manager")
// and then requires an exact match.
func ParseRole(s string) (Role, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
	role, ok := roleAliases[key]
	return role, ok
}

// NormalizeRoles converts boundary role strings into a deduplicated role set,
// dropping anything unrecognised.
func NormalizeRoles(raw []string) []Role {
	seen := make(map[Role]bool, len(raw))
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		role, ok := ParseRole(s)
		if !ok || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}
	return roles
}

func roleAllows(role Role, action Action) bool {
	switch role {
	case RoleAdmin, RoleSalesManager:
		return true
	case RoleBusinessDevelopmentManager:
		return action != ActionDelete
	default:
		return false
	}
}

// Authorize reports whether any role in the set permits action.
func Authorize(roles []Role, action Action) bool {
	for _, role := range roles {
		if roleAllows(role, action) {
			return true
		}
	}
	return false
}

// Principal is the caller of a command as supplied by the identity collaborator.
type Principal struct {
	ID    string
	Roles []Role
}

func (p Principal) authorize(action Action) error {
	if !Authorize(p.Roles, action) {
		return ErrPermissionDenied
	}
	return nil
}

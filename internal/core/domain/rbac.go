package domain

import "time"

// PermissionWildcard is the sentinel code carried by super-admin claims. It
// satisfies every permission check without consulting role assignments.
const PermissionWildcard = "*"

// Role groups menu, feature, and API permission codes under a named grant.
// Permission codes are stored denormalized as string arrays on the role row.
type Role struct {
	ID                 int64
	Name               string
	Code               string
	Description        *string
	MenuPermissions    []string
	FeaturePermissions []string
	ApiPermissions     []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserRole assigns a role to a user. The user row owns its join rows.
type UserRole struct {
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// PermissionSet is the flattened union of a user's role permissions. Order is
// first-occurrence insertion order and carries no meaning; consumers must
// treat each slice as a set.
type PermissionSet struct {
	Menu    []string
	Feature []string
	Api     []string
}

// WildcardPermissionSet returns the sentinel set substituted for super-admin
// users instead of aggregating their roles.
func WildcardPermissionSet() PermissionSet {
	return PermissionSet{
		Menu:    []string{PermissionWildcard},
		Feature: []string{PermissionWildcard},
		Api:     []string{PermissionWildcard},
	}
}

// IsWildcard reports whether the set is the super-admin sentinel.
func (s PermissionSet) IsWildcard() bool {
	return len(s.Api) == 1 && s.Api[0] == PermissionWildcard
}

// HasAllApi reports whether every required code is present in the API
// permission set. The wildcard sentinel satisfies any requirement.
func (s PermissionSet) HasAllApi(required []string) bool {
	if len(required) == 0 {
		return true
	}
	granted := make(map[string]struct{}, len(s.Api))
	for _, code := range s.Api {
		if code == PermissionWildcard {
			return true
		}
		granted[code] = struct{}{}
	}
	for _, code := range required {
		if _, ok := granted[code]; !ok {
			return false
		}
	}
	return true
}

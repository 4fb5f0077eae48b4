package usecase

import (
	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

// AggregatePermissions unions the permission codes of the given roles into a
// single set. Duplicates collapse to their first occurrence and slice order
// follows role order, so the result is deterministic for the same input.
func AggregatePermissions(roles []domain.Role) domain.PermissionSet {
	return domain.PermissionSet{
		Menu:    unionCodes(roles, func(r domain.Role) []string { return r.MenuPermissions }),
		Feature: unionCodes(roles, func(r domain.Role) []string { return r.FeaturePermissions }),
		Api:     unionCodes(roles, func(r domain.Role) []string { return r.ApiPermissions }),
	}
}

// PermissionsFor resolves the effective permission set for a user. Super
// admins receive the wildcard sentinel instead of an aggregation.
func PermissionsFor(user domain.User, roles []domain.Role) domain.PermissionSet {
	if user.IsSuperAdmin {
		return domain.WildcardPermissionSet()
	}
	return AggregatePermissions(roles)
}

func unionCodes(roles []domain.Role, pick func(domain.Role) []string) []string {
	seen := make(map[string]struct{})
	codes := make([]string, 0)
	for _, role := range roles {
		for _, code := range pick(role) {
			if code == "" {
				continue
			}
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	return codes
}

package usecase

import (
	"reflect"
	"testing"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

func TestAggregatePermissions(t *testing.T) {
	roles := []domain.Role{
		{
			ID:                 1,
			Code:               "home",
			MenuPermissions:    []string{"dashboard", "system"},
			FeaturePermissions: []string{"system:user:freeze"},
			ApiPermissions:     []string{"system:user:read", "system:role:read"},
		},
		{
			ID:                 2,
			Code:               "admin",
			MenuPermissions:    []string{"system", "monitor"},
			FeaturePermissions: []string{"system:user:freeze", "system:user:export"},
			ApiPermissions:     []string{"system:user:read", "system:user:delete"},
		},
	}

	set := AggregatePermissions(roles)

	wantMenu := []string{"dashboard", "system", "monitor"}
	if !reflect.DeepEqual(set.Menu, wantMenu) {
		t.Fatalf("menu union = %v, want %v", set.Menu, wantMenu)
	}

	wantFeature := []string{"system:user:freeze", "system:user:export"}
	if !reflect.DeepEqual(set.Feature, wantFeature) {
		t.Fatalf("feature union = %v, want %v", set.Feature, wantFeature)
	}

	wantApi := []string{"system:user:read", "system:role:read", "system:user:delete"}
	if !reflect.DeepEqual(set.Api, wantApi) {
		t.Fatalf("api union = %v, want %v", set.Api, wantApi)
	}
}

func TestAggregatePermissionsSkipsEmptyCodes(t *testing.T) {
	roles := []domain.Role{
		{ApiPermissions: []string{"", "a", ""}},
	}

	set := AggregatePermissions(roles)
	if !reflect.DeepEqual(set.Api, []string{"a"}) {
		t.Fatalf("api union = %v, want [a]", set.Api)
	}
}

func TestAggregatePermissionsNoRoles(t *testing.T) {
	set := AggregatePermissions(nil)
	if len(set.Menu) != 0 || len(set.Feature) != 0 || len(set.Api) != 0 {
		t.Fatalf("expected empty set, got %+v", set)
	}
}

func TestPermissionsForSuperAdmin(t *testing.T) {
	user := domain.User{ID: 1, IsSuperAdmin: true}
	roles := []domain.Role{
		{ApiPermissions: []string{"system:user:read"}},
	}

	set := PermissionsFor(user, roles)

	if !set.IsWildcard() {
		t.Fatalf("super admin should receive the wildcard set, got %+v", set)
	}
	if !set.HasAllApi([]string{"anything:at:all"}) {
		t.Fatalf("wildcard set should satisfy any requirement")
	}
}

func TestPermissionsForRegularUser(t *testing.T) {
	user := domain.User{ID: 2}
	roles := []domain.Role{
		{ApiPermissions: []string{"system:user:read"}},
	}

	set := PermissionsFor(user, roles)

	if set.IsWildcard() {
		t.Fatalf("regular user must not receive the wildcard set")
	}
	if !set.HasAllApi([]string{"system:user:read"}) {
		t.Fatalf("granted permission missing from aggregate")
	}
	if set.HasAllApi([]string{"system:user:delete"}) {
		t.Fatalf("unheld permission must not pass")
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
)

type userFixture struct {
	users *userRepoMock
	roles *roleRepoMock
	menus *menuRepoMock

	svc    *UserService
	events *publisherMock
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	f := &userFixture{
		users:  newUserRepoMock(),
		roles:  newRoleRepoMock(),
		menus:  newMenuRepoMock(),
		events: &publisherMock{},
	}
	f.svc = NewUserService(f.users, f.roles, f.menus, security.NewPasswordPolicy(), f.events, zaptest.NewLogger(t))
	return f
}

const testPassword = "xK9#mQ2!vL7z"

func TestUserCreate(t *testing.T) {
	f := newUserFixture(t)
	roleID := f.roles.add(domain.Role{Name: "Operator", Code: "operator"})

	id, err := f.svc.Create(context.Background(), 1, CreateUserInput{
		Username: "alice",
		Password: testPassword,
		RoleIDs:  []int64{roleID, roleID},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	user, err := f.users.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("created user missing: %v", err)
	}
	if user.PasswordHash == testPassword || user.PasswordHash == "" {
		t.Fatalf("password stored without hashing")
	}
	if assigned := f.users.assignments[id]; len(assigned) != 1 || assigned[0] != roleID {
		t.Fatalf("role assignments = %v", assigned)
	}
	if len(f.events.events) != 1 || f.events.events[0].Action != "create" {
		t.Fatalf("audit events = %+v", f.events.events)
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "alice"})

	_, err := f.svc.Create(context.Background(), 1, CreateUserInput{Username: "alice", Password: testPassword})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserCreateWeakPassword(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Create(context.Background(), 1, CreateUserInput{Username: "alice", Password: "password"})
	var policyErr *security.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
}

func TestUserCreateUnknownRole(t *testing.T) {
	f := newUserFixture(t)

	_, err := f.svc.Create(context.Background(), 1, CreateUserInput{
		Username: "alice",
		Password: testPassword,
		RoleIDs:  []int64{999},
	})
	if !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestUserGet(t *testing.T) {
	f := newUserFixture(t)
	role := domain.Role{ID: 3, Name: "Operator", Code: "operator"}
	f.users.add(domain.User{ID: 5, Username: "alice"}, role)

	detail, err := f.svc.Get(context.Background(), 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.User.Username != "alice" {
		t.Fatalf("username = %q", detail.User.Username)
	}
	if len(detail.RoleIDs) != 1 || detail.RoleIDs[0] != 3 {
		t.Fatalf("role ids = %v", detail.RoleIDs)
	}
}

func TestUserUpdateSuperAdminProtected(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})

	err := f.svc.Update(context.Background(), 2, UpdateUserInput{ID: 1})
	if !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("expected ErrSuperAdminProtected, got %v", err)
	}
}

func TestUserUpdateSuperAdminSelf(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})

	nick := "The Root"
	if err := f.svc.Update(context.Background(), 1, UpdateUserInput{ID: 1, NickName: &nick}); err != nil {
		t.Fatalf("Update self: %v", err)
	}
	if f.users.users["root"].NickName == nil || *f.users.users["root"].NickName != nick {
		t.Fatalf("nick name not updated")
	}
}

func TestUserChangePassword(t *testing.T) {
	f := newUserFixture(t)

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f.users.add(domain.User{ID: 7, Username: "alice", PasswordHash: hash})

	newPassword := "nW4$pR8@jT3y"
	if err := f.svc.ChangePassword(context.Background(), 7, testPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	ok, err := security.VerifyPassword(newPassword, f.users.users["alice"].PasswordHash)
	if err != nil || !ok {
		t.Fatalf("new password does not verify: ok=%v err=%v", ok, err)
	}
}

func TestUserChangePasswordWrongCurrent(t *testing.T) {
	f := newUserFixture(t)

	hash, err := security.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	f.users.add(domain.User{ID: 7, Username: "alice", PasswordHash: hash})

	err = f.svc.ChangePassword(context.Background(), 7, "wrong-password", "nW4$pR8@jT3y")
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestUserSetFrozen(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 5, Username: "alice"})

	if err := f.svc.SetFrozen(context.Background(), 1, 5, true); err != nil {
		t.Fatalf("SetFrozen: %v", err)
	}
	if !f.users.users["alice"].IsFrozen {
		t.Fatalf("user not frozen")
	}
	if len(f.events.events) != 1 || f.events.events[0].Action != "freeze" {
		t.Fatalf("audit events = %+v", f.events.events)
	}

	if err := f.svc.SetFrozen(context.Background(), 1, 5, false); err != nil {
		t.Fatalf("SetFrozen(false): %v", err)
	}
	if f.users.users["alice"].IsFrozen {
		t.Fatalf("user still frozen")
	}
	if len(f.events.events) != 2 || f.events.events[1].Action != "unfreeze" {
		t.Fatalf("audit events = %+v", f.events.events)
	}
}

func TestUserSetFrozenSuperAdmin(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})

	if err := f.svc.SetFrozen(context.Background(), 2, 1, true); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("expected ErrSuperAdminProtected, got %v", err)
	}
}

func TestUserDeleteSuperAdmin(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})

	if err := f.svc.Delete(context.Background(), 2, 1); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("expected ErrSuperAdminProtected, got %v", err)
	}
}

func TestUserDeleteManySkipsSuperAdmins(t *testing.T) {
	f := newUserFixture(t)
	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})
	f.users.add(domain.User{ID: 2, Username: "alice"})
	f.users.add(domain.User{ID: 3, Username: "bob"})

	deleted, err := f.svc.DeleteMany(context.Background(), 1, []int64{1, 2, 3, 999})
	if err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}
	if _, ok := f.users.users["root"]; !ok {
		t.Fatalf("super admin was deleted")
	}
}

func TestUserInfoFiltersMenus(t *testing.T) {
	f := newUserFixture(t)

	dirID := f.menus.add(domain.Menu{Type: domain.MenuTypeDirectory, Title: "System", Code: codePtr("system"), Sort: 1})
	f.menus.add(domain.Menu{Type: domain.MenuTypeMenu, Title: "Users", ParentID: &dirID, Code: codePtr("system:user"), Sort: 1})
	f.menus.add(domain.Menu{Type: domain.MenuTypeMenu, Title: "Roles", ParentID: &dirID, Code: codePtr("system:role"), Sort: 2})

	role := domain.Role{ID: 1, Name: "Operator", Code: "operator", MenuPermissions: []string{"system:user"}}
	f.users.add(domain.User{ID: 5, Username: "alice"}, role)

	info, err := f.svc.Info(context.Background(), 5)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	if len(info.Menus) != 1 || info.Menus[0].Title != "System" {
		t.Fatalf("unexpected roots: %+v", info.Menus)
	}
	children := info.Menus[0].Children
	if len(children) != 1 || children[0].Title != "Users" {
		t.Fatalf("filtering failed: %+v", children)
	}
}

func TestUserInfoSuperAdminSeesEverything(t *testing.T) {
	f := newUserFixture(t)

	dirID := f.menus.add(domain.Menu{Type: domain.MenuTypeDirectory, Title: "System", Code: codePtr("system"), Sort: 1})
	f.menus.add(domain.Menu{Type: domain.MenuTypeMenu, Title: "Users", ParentID: &dirID, Code: codePtr("system:user"), Sort: 1})
	f.menus.add(domain.Menu{Type: domain.MenuTypeMenu, Title: "Roles", ParentID: &dirID, Code: codePtr("system:role"), Sort: 2})

	f.users.add(domain.User{ID: 1, Username: "root", IsSuperAdmin: true})

	info, err := f.svc.Info(context.Background(), 1)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	if !info.Permissions.IsWildcard() {
		t.Fatalf("expected wildcard permissions: %+v", info.Permissions)
	}
	if len(info.Menus) != 1 || len(info.Menus[0].Children) != 2 {
		t.Fatalf("super admin menu tree was filtered: %+v", info.Menus)
	}
}

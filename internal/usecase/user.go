package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/infra/security"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

var (
	// ErrUserExists indicates a user with the provided username already exists.
	ErrUserExists = errors.New("username already taken")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrWrongPassword indicates the supplied current password does not match.
	ErrWrongPassword = errors.New("current password is incorrect")
	// ErrSuperAdminProtected indicates the operation may not target a super admin.
	ErrSuperAdminProtected = errors.New("super admin accounts cannot be modified")
)

// CreateUserInput captures the payload for provisioning a user.
type CreateUserInput struct {
	Username string
	Password string
	NickName *string
	Email    *string
	Phone    *string
	HeadPic  *string
	RoleIDs  []int64
}

// UpdateUserInput captures a profile update together with the full
// replacement role set.
type UpdateUserInput struct {
	ID       int64
	NickName *string
	Email    *string
	Phone    *string
	HeadPic  *string
	RoleIDs  []int64
}

// UserDetail is a user joined with its assigned role IDs.
type UserDetail struct {
	User    domain.User
	RoleIDs []int64
}

// UserInfo bundles the profile, the permission-filtered menu tree, and the
// effective permission codes for the authenticated user.
type UserInfo struct {
	User        domain.User
	Menus       []*domain.MenuNode
	Permissions domain.PermissionSet
}

// UserService manages admin-panel accounts.
type UserService struct {
	users  port.UserRepository
	roles  port.RoleRepository
	menus  port.MenuRepository
	policy *security.PasswordPolicy
	events port.EventPublisher
	logger *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(
	users port.UserRepository,
	roles port.RoleRepository,
	menus port.MenuRepository,
	policy *security.PasswordPolicy,
	events port.EventPublisher,
	logger *zap.Logger,
) *UserService {
	return &UserService{users: users, roles: roles, menus: menus, policy: policy, events: events, logger: logger}
}

func (s *UserService) publishAudit(ctx context.Context, action string, resourceID *int64, actorID int64, detail map[string]any) {
	event := domain.AuditEvent{
		Action:     action,
		Resource:   "user",
		ResourceID: resourceID,
		ActorID:    actorID,
		At:         time.Now().UTC(),
		Detail:     detail,
	}
	if err := s.events.PublishAudit(ctx, event); err != nil {
		s.logger.Warn("publish user audit event failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *UserService) verifyRoleIDs(ctx context.Context, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	roles, err := s.roles.ListByIDs(ctx, roleIDs)
	if err != nil {
		return fmt.Errorf("verify role ids: %w", err)
	}
	if len(roles) != len(dedupeIDs(roleIDs)) {
		return ErrRoleNotFound
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Create provisions a user with the given roles. The username must be free
// and the password must satisfy the strength policy.
func (s *UserService) Create(ctx context.Context, actorID int64, input CreateUserInput) (int64, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return 0, fmt.Errorf("username is required")
	}

	if err := s.policy.Validate(input.Password, username); err != nil {
		return 0, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return 0, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("check username: %w", err)
	}

	if err := s.verifyRoleIDs(ctx, input.RoleIDs); err != nil {
		return 0, err
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Username:     username,
		PasswordHash: hash,
		NickName:     input.NickName,
		Email:        input.Email,
		Phone:        input.Phone,
		HeadPic:      input.HeadPic,
	}

	id, err := s.users.Create(ctx, user, dedupeIDs(input.RoleIDs))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	s.publishAudit(ctx, "create", &id, actorID, map[string]any{"username": username})
	return id, nil
}

// Get returns a user together with its assigned role IDs.
func (s *UserService) Get(ctx context.Context, id int64) (UserDetail, error) {
	var detail UserDetail

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return detail, ErrUserNotFound
		}
		return detail, fmt.Errorf("load user: %w", err)
	}

	roleIDs, err := s.users.RoleIDs(ctx, id)
	if err != nil {
		return detail, fmt.Errorf("load user role ids: %w", err)
	}

	detail.User = *user
	detail.RoleIDs = roleIDs
	return detail, nil
}

// List returns non-super-admin users matching the filter plus the total count.
func (s *UserService) List(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	return s.users.List(ctx, filter)
}

// Update replaces the user's profile fields and its full role-assignment set.
func (s *UserService) Update(ctx context.Context, actorID int64, input UpdateUserInput) error {
	user, err := s.users.GetByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsSuperAdmin && actorID != user.ID {
		return ErrSuperAdminProtected
	}

	if err := s.verifyRoleIDs(ctx, input.RoleIDs); err != nil {
		return err
	}

	user.NickName = input.NickName
	user.Email = input.Email
	user.Phone = input.Phone
	user.HeadPic = input.HeadPic

	if err := s.users.Update(ctx, *user, dedupeIDs(input.RoleIDs)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}

	s.publishAudit(ctx, "update", &input.ID, actorID, nil)
	return nil
}

// ChangePassword verifies the current password then stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify current password: %w", err)
	}
	if !ok {
		return ErrWrongPassword
	}

	if err := s.policy.Validate(newPassword, user.Username); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.publishAudit(ctx, "change_password", &userID, userID, nil)
	return nil
}

// SetFrozen freezes or unfreezes an account. A frozen account keeps its data
// but can no longer authenticate. Super admins cannot be frozen.
func (s *UserService) SetFrozen(ctx context.Context, actorID, userID int64, frozen bool) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsSuperAdmin {
		return ErrSuperAdminProtected
	}

	if err := s.users.SetFrozen(ctx, userID, frozen); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set frozen: %w", err)
	}

	action := "freeze"
	if !frozen {
		action = "unfreeze"
	}
	s.publishAudit(ctx, action, &userID, actorID, nil)
	return nil
}

// Delete removes a user and its role assignments.
func (s *UserService) Delete(ctx context.Context, actorID, userID int64) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsSuperAdmin {
		return ErrSuperAdminProtected
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.publishAudit(ctx, "delete", &userID, actorID, nil)
	return nil
}

// DeleteMany removes a batch of users, skipping super admins, and returns
// how many rows were removed.
func (s *UserService) DeleteMany(ctx context.Context, actorID int64, userIDs []int64) (int64, error) {
	ids := make([]int64, 0, len(userIDs))
	for _, id := range dedupeIDs(userIDs) {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return 0, fmt.Errorf("load user: %w", err)
		}
		if user.IsSuperAdmin {
			continue
		}
		ids = append(ids, id)
	}

	deleted, err := s.users.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}

	if deleted > 0 {
		s.publishAudit(ctx, "delete_many", nil, actorID, map[string]any{"count": deleted})
	}
	return deleted, nil
}

// Info resolves the authenticated user's profile, its permission-filtered
// menu tree, and its effective permission codes.
func (s *UserService) Info(ctx context.Context, userID int64) (UserInfo, error) {
	var info UserInfo

	user, roles, err := s.users.GetWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return info, ErrUserNotFound
		}
		return info, fmt.Errorf("load user: %w", err)
	}

	permissions := PermissionsFor(*user, roles)

	menus, err := s.menus.List(ctx)
	if err != nil {
		return info, fmt.Errorf("load menus: %w", err)
	}

	tree := domain.BuildMenuTree(menus)
	if !permissions.IsWildcard() {
		allowedMenu := make(map[string]struct{}, len(permissions.Menu))
		for _, code := range permissions.Menu {
			allowedMenu[code] = struct{}{}
		}
		allowedFeature := make(map[string]struct{}, len(permissions.Feature))
		for _, code := range permissions.Feature {
			allowedFeature[code] = struct{}{}
		}
		tree = domain.FilterMenuTree(tree, func(code *string) bool {
			if code == nil {
				return true
			}
			if _, ok := allowedMenu[*code]; ok {
				return true
			}
			_, ok := allowedFeature[*code]
			return ok
		})
	}

	info.User = *user
	info.Menus = tree
	info.Permissions = permissions
	return info, nil
}

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
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

var (
	// ErrRoleExists indicates a role with the provided code already exists.
	ErrRoleExists = errors.New("role code already taken")
	// ErrRoleNotFound is returned when the referenced role does not exist.
	ErrRoleNotFound = errors.New("role not found")
)

// RoleInput captures the payload for creating or updating a role.
type RoleInput struct {
	ID                 int64
	Name               string
	Code               string
	Description        *string
	MenuPermissions    []string
	FeaturePermissions []string
	ApiPermissions     []string
}

// RoleService manages roles and their permission grants.
type RoleService struct {
	roles  port.RoleRepository
	events port.EventPublisher
	logger *zap.Logger
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, events port.EventPublisher, logger *zap.Logger) *RoleService {
	return &RoleService{roles: roles, events: events, logger: logger}
}

func (s *RoleService) publishAudit(ctx context.Context, action string, resourceID *int64, actorID int64, detail map[string]any) {
	event := domain.AuditEvent{
		Action:     action,
		Resource:   "role",
		ResourceID: resourceID,
		ActorID:    actorID,
		At:         time.Now().UTC(),
		Detail:     detail,
	}
	if err := s.events.PublishAudit(ctx, event); err != nil {
		s.logger.Warn("publish role audit event failed", zap.String("action", action), zap.Error(err))
	}
}

func normalizeCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" || code == domain.PermissionWildcard {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func roleFromInput(input RoleInput) (domain.Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Role{}, fmt.Errorf("role name is required")
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return domain.Role{}, fmt.Errorf("role code is required")
	}

	return domain.Role{
		ID:                 input.ID,
		Name:               name,
		Code:               code,
		Description:        input.Description,
		MenuPermissions:    normalizeCodes(input.MenuPermissions),
		FeaturePermissions: normalizeCodes(input.FeaturePermissions),
		ApiPermissions:     normalizeCodes(input.ApiPermissions),
	}, nil
}

// Create provisions a new role with its permission grants.
func (s *RoleService) Create(ctx context.Context, actorID int64, input RoleInput) (int64, error) {
	role, err := roleFromInput(input)
	if err != nil {
		return 0, err
	}

	id, err := s.roles.Create(ctx, role)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return 0, ErrRoleExists
		}
		return 0, fmt.Errorf("create role: %w", err)
	}

	s.publishAudit(ctx, "create", &id, actorID, map[string]any{"code": role.Code})
	return id, nil
}

// Get retrieves a role by its ID.
func (s *RoleService) Get(ctx context.Context, id int64) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("load role: %w", err)
	}
	return role, nil
}

// List returns roles matching the filter plus the total count.
func (s *RoleService) List(ctx context.Context, filter port.RoleFilter) ([]domain.Role, int64, error) {
	return s.roles.List(ctx, filter)
}

// ListAll retrieves every role for assignment pickers.
func (s *RoleService) ListAll(ctx context.Context) ([]domain.Role, error) {
	return s.roles.ListAll(ctx)
}

// Update replaces a role's fields and permission grants. Tokens already
// issued keep their embedded permissions until they expire or rotate.
func (s *RoleService) Update(ctx context.Context, actorID int64, input RoleInput) error {
	role, err := roleFromInput(input)
	if err != nil {
		return err
	}
	if role.ID <= 0 {
		return fmt.Errorf("role id is required")
	}

	if err := s.roles.Update(ctx, role); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrRoleNotFound
		case errors.Is(err, repository.ErrConflict):
			return ErrRoleExists
		}
		return fmt.Errorf("update role: %w", err)
	}

	s.publishAudit(ctx, "update", &role.ID, actorID, nil)
	return nil
}

// Delete removes a role, detaching it from every user that held it.
func (s *RoleService) Delete(ctx context.Context, actorID, id int64) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoleNotFound
		}
		return fmt.Errorf("delete role: %w", err)
	}

	s.publishAudit(ctx, "delete", &id, actorID, nil)
	return nil
}

// DeleteMany removes a batch of roles and returns how many rows were removed.
func (s *RoleService) DeleteMany(ctx context.Context, actorID int64, ids []int64) (int64, error) {
	deleted, err := s.roles.DeleteMany(ctx, dedupeIDs(ids))
	if err != nil {
		return 0, fmt.Errorf("delete roles: %w", err)
	}

	if deleted > 0 {
		s.publishAudit(ctx, "delete_many", nil, actorID, map[string]any{"count": deleted})
	}
	return deleted, nil
}

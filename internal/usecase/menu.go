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
	// ErrMenuNotFound is returned when the referenced menu does not exist.
	ErrMenuNotFound = errors.New("menu not found")
	// ErrMenuHasChildren indicates a menu with children cannot be deleted.
	ErrMenuHasChildren = errors.New("menu has children")
	// ErrMenuParentInvalid indicates the referenced parent is missing or of
	// the wrong type.
	ErrMenuParentInvalid = errors.New("invalid parent menu")
)

// MenuInput captures the payload for creating or updating a menu node.
type MenuInput struct {
	ID        int64
	ParentID  *int64
	Type      domain.MenuType
	Code      *string
	Title     string
	Icon      *string
	Path      *string
	Component *string
	Sort      int32
	Hidden    bool
}

// MenuService manages the navigation tree.
type MenuService struct {
	menus  port.MenuRepository
	events port.EventPublisher
	logger *zap.Logger
}

// NewMenuService constructs a MenuService.
func NewMenuService(menus port.MenuRepository, events port.EventPublisher, logger *zap.Logger) *MenuService {
	return &MenuService{menus: menus, events: events, logger: logger}
}

func (s *MenuService) publishAudit(ctx context.Context, action string, resourceID *int64, actorID int64) {
	event := domain.AuditEvent{
		Action:     action,
		Resource:   "menu",
		ResourceID: resourceID,
		ActorID:    actorID,
		At:         time.Now().UTC(),
	}
	if err := s.events.PublishAudit(ctx, event); err != nil {
		s.logger.Warn("publish menu audit event failed", zap.String("action", action), zap.Error(err))
	}
}

func menuFromInput(input MenuInput) (domain.Menu, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Menu{}, fmt.Errorf("menu title is required")
	}

	switch input.Type {
	case domain.MenuTypeDirectory, domain.MenuTypeMenu, domain.MenuTypeFeature:
	default:
		return domain.Menu{}, fmt.Errorf("unknown menu type %q", input.Type)
	}

	return domain.Menu{
		ID:        input.ID,
		ParentID:  input.ParentID,
		Type:      input.Type,
		Code:      input.Code,
		Title:     title,
		Icon:      input.Icon,
		Path:      input.Path,
		Component: input.Component,
		Sort:      input.Sort,
		Hidden:    input.Hidden,
	}, nil
}

func (s *MenuService) verifyParent(ctx context.Context, menu domain.Menu) error {
	if menu.ParentID == nil {
		return nil
	}
	if menu.ID != 0 && *menu.ParentID == menu.ID {
		return ErrMenuParentInvalid
	}

	parent, err := s.menus.GetByID(ctx, *menu.ParentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMenuParentInvalid
		}
		return fmt.Errorf("load parent menu: %w", err)
	}

	// Features hang off menus; everything else hangs off directories.
	if menu.Type == domain.MenuTypeFeature {
		if parent.Type != domain.MenuTypeMenu {
			return ErrMenuParentInvalid
		}
		return nil
	}
	if parent.Type != domain.MenuTypeDirectory {
		return ErrMenuParentInvalid
	}
	return nil
}

// Create inserts a menu node.
func (s *MenuService) Create(ctx context.Context, actorID int64, input MenuInput) (int64, error) {
	menu, err := menuFromInput(input)
	if err != nil {
		return 0, err
	}
	if err := s.verifyParent(ctx, menu); err != nil {
		return 0, err
	}

	id, err := s.menus.Create(ctx, menu)
	if err != nil {
		return 0, fmt.Errorf("create menu: %w", err)
	}

	s.publishAudit(ctx, "create", &id, actorID)
	return id, nil
}

// Get retrieves a menu node by its ID.
func (s *MenuService) Get(ctx context.Context, id int64) (*domain.Menu, error) {
	menu, err := s.menus.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMenuNotFound
		}
		return nil, fmt.Errorf("load menu: %w", err)
	}
	return menu, nil
}

// Update modifies a menu node.
func (s *MenuService) Update(ctx context.Context, actorID int64, input MenuInput) error {
	menu, err := menuFromInput(input)
	if err != nil {
		return err
	}
	if menu.ID <= 0 {
		return fmt.Errorf("menu id is required")
	}
	if err := s.verifyParent(ctx, menu); err != nil {
		return err
	}

	if err := s.menus.Update(ctx, menu); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMenuNotFound
		}
		return fmt.Errorf("update menu: %w", err)
	}

	s.publishAudit(ctx, "update", &menu.ID, actorID)
	return nil
}

// Delete removes a leaf menu node. Nodes with children are rejected so the
// tree never silently orphans subtrees.
func (s *MenuService) Delete(ctx context.Context, actorID, id int64) error {
	menus, err := s.menus.List(ctx)
	if err != nil {
		return fmt.Errorf("load menus: %w", err)
	}
	for _, m := range menus {
		if m.ParentID != nil && *m.ParentID == id {
			return ErrMenuHasChildren
		}
	}

	if err := s.menus.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMenuNotFound
		}
		return fmt.Errorf("delete menu: %w", err)
	}

	s.publishAudit(ctx, "delete", &id, actorID)
	return nil
}

// Tree returns the full menu forest.
func (s *MenuService) Tree(ctx context.Context) ([]*domain.MenuNode, error) {
	menus, err := s.menus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}
	return domain.BuildMenuTree(menus), nil
}

// Flat returns every menu row in display order.
func (s *MenuService) Flat(ctx context.Context) ([]domain.Menu, error) {
	menus, err := s.menus.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}
	return menus, nil
}

// PermissionCodes returns the distinct permission codes carried by menu rows
// of the given types, in display order.
func (s *MenuService) PermissionCodes(ctx context.Context, types []domain.MenuType) ([]string, error) {
	menus, err := s.menus.ListByTypes(ctx, types)
	if err != nil {
		return nil, fmt.Errorf("load menus: %w", err)
	}

	seen := make(map[string]struct{})
	codes := make([]string, 0, len(menus))
	for _, m := range menus {
		if m.Code == nil || *m.Code == "" {
			continue
		}
		if _, ok := seen[*m.Code]; ok {
			continue
		}
		seen[*m.Code] = struct{}{}
		codes = append(codes, *m.Code)
	}

	return codes, nil
}

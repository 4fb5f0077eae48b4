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
	// ErrApiNotFound is returned when the referenced API record does not exist.
	ErrApiNotFound = errors.New("api record not found")
	// ErrApiHasChildren indicates an API directory with children cannot be deleted.
	ErrApiHasChildren = errors.New("api record has children")
	// ErrApiParentInvalid indicates the referenced parent is missing or not a
	// directory.
	ErrApiParentInvalid = errors.New("invalid parent api record")
)

// ApiInput captures the payload for creating or updating an API record.
type ApiInput struct {
	ID       int64
	ParentID *int64
	Type     domain.ApiType
	Code     *string
	Method   *string
	Path     *string
	Title    string
	Sort     int32
}

// ApiService manages the API-permission catalog.
type ApiService struct {
	apis   port.ApiRepository
	events port.EventPublisher
	logger *zap.Logger
}

// NewApiService constructs an ApiService.
func NewApiService(apis port.ApiRepository, events port.EventPublisher, logger *zap.Logger) *ApiService {
	return &ApiService{apis: apis, events: events, logger: logger}
}

func (s *ApiService) publishAudit(ctx context.Context, action string, resourceID *int64, actorID int64) {
	event := domain.AuditEvent{
		Action:     action,
		Resource:   "api",
		ResourceID: resourceID,
		ActorID:    actorID,
		At:         time.Now().UTC(),
	}
	if err := s.events.PublishAudit(ctx, event); err != nil {
		s.logger.Warn("publish api audit event failed", zap.String("action", action), zap.Error(err))
	}
}

func apiFromInput(input ApiInput) (domain.Api, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Api{}, fmt.Errorf("api title is required")
	}

	switch input.Type {
	case domain.ApiTypeDirectory:
	case domain.ApiTypeApi:
		if input.Code == nil || strings.TrimSpace(*input.Code) == "" {
			return domain.Api{}, fmt.Errorf("api permission code is required")
		}
	default:
		return domain.Api{}, fmt.Errorf("unknown api type %q", input.Type)
	}

	return domain.Api{
		ID:       input.ID,
		ParentID: input.ParentID,
		Type:     input.Type,
		Code:     input.Code,
		Method:   input.Method,
		Path:     input.Path,
		Title:    title,
		Sort:     input.Sort,
	}, nil
}

func (s *ApiService) verifyParent(ctx context.Context, api domain.Api) error {
	if api.ParentID == nil {
		return nil
	}
	if api.ID != 0 && *api.ParentID == api.ID {
		return ErrApiParentInvalid
	}

	parent, err := s.apis.GetByID(ctx, *api.ParentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApiParentInvalid
		}
		return fmt.Errorf("load parent api record: %w", err)
	}
	if parent.Type != domain.ApiTypeDirectory {
		return ErrApiParentInvalid
	}
	return nil
}

// Create inserts an API record.
func (s *ApiService) Create(ctx context.Context, actorID int64, input ApiInput) (int64, error) {
	api, err := apiFromInput(input)
	if err != nil {
		return 0, err
	}
	if err := s.verifyParent(ctx, api); err != nil {
		return 0, err
	}

	id, err := s.apis.Create(ctx, api)
	if err != nil {
		return 0, fmt.Errorf("create api record: %w", err)
	}

	s.publishAudit(ctx, "create", &id, actorID)
	return id, nil
}

// Get retrieves an API record by its ID.
func (s *ApiService) Get(ctx context.Context, id int64) (*domain.Api, error) {
	api, err := s.apis.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrApiNotFound
		}
		return nil, fmt.Errorf("load api record: %w", err)
	}
	return api, nil
}

// Update modifies an API record.
func (s *ApiService) Update(ctx context.Context, actorID int64, input ApiInput) error {
	api, err := apiFromInput(input)
	if err != nil {
		return err
	}
	if api.ID <= 0 {
		return fmt.Errorf("api id is required")
	}
	if err := s.verifyParent(ctx, api); err != nil {
		return err
	}

	if err := s.apis.Update(ctx, api); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApiNotFound
		}
		return fmt.Errorf("update api record: %w", err)
	}

	s.publishAudit(ctx, "update", &api.ID, actorID)
	return nil
}

// Delete removes a leaf API record.
func (s *ApiService) Delete(ctx context.Context, actorID, id int64) error {
	apis, err := s.apis.List(ctx)
	if err != nil {
		return fmt.Errorf("load api records: %w", err)
	}
	for _, a := range apis {
		if a.ParentID != nil && *a.ParentID == id {
			return ErrApiHasChildren
		}
	}

	if err := s.apis.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrApiNotFound
		}
		return fmt.Errorf("delete api record: %w", err)
	}

	s.publishAudit(ctx, "delete", &id, actorID)
	return nil
}

// Tree returns the API catalog as a forest.
func (s *ApiService) Tree(ctx context.Context) ([]*domain.ApiNode, error) {
	apis, err := s.apis.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api records: %w", err)
	}
	return domain.BuildApiTree(apis), nil
}

// Flat returns every API record in display order.
func (s *ApiService) Flat(ctx context.Context) ([]domain.Api, error) {
	apis, err := s.apis.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api records: %w", err)
	}
	return apis, nil
}

// Permissions returns the leaf API records that carry a permission code,
// in display order. Directories and code-less leaves are skipped.
func (s *ApiService) Permissions(ctx context.Context) ([]domain.Api, error) {
	apis, err := s.apis.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load api records: %w", err)
	}

	out := make([]domain.Api, 0, len(apis))
	for _, a := range apis {
		if a.Type != domain.ApiTypeApi {
			continue
		}
		if a.Code == nil || *a.Code == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

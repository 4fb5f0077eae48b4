package port

import (
	"context"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

// MenuRepository persists menu-tree rows. List returns rows ordered by sort
// then id so tree assembly preserves sibling order.
type MenuRepository interface {
	Create(ctx context.Context, menu domain.Menu) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Menu, error)
	Update(ctx context.Context, menu domain.Menu) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Menu, error)
	ListByTypes(ctx context.Context, types []domain.MenuType) ([]domain.Menu, error)
}

// ApiRepository persists API-permission rows.
type ApiRepository interface {
	Create(ctx context.Context, api domain.Api) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Api, error)
	Update(ctx context.Context, api domain.Api) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Api, error)
}

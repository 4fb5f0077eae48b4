package port

import (
	"context"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

// RoleFilter narrows role listings.
type RoleFilter struct {
	Name     string
	Code     string
	Page     int
	PageSize int
}

// RoleRepository persists roles. Deleting a role detaches its user
// assignments in the same transaction.
type RoleRepository interface {
	Create(ctx context.Context, role domain.Role) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Role, error)
	GetByCode(ctx context.Context, code string) (*domain.Role, error)
	Update(ctx context.Context, role domain.Role) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	List(ctx context.Context, filter RoleFilter) ([]domain.Role, int64, error)
	ListAll(ctx context.Context) ([]domain.Role, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Role, error)
}

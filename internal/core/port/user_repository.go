package port

import (
	"context"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
)

// UserFilter narrows user listings. String fields are fuzzy-matched.
type UserFilter struct {
	Username string
	NickName string
	Email    string
	Phone    string
	Page     int
	PageSize int
}

// UserRepository persists users and their role assignments.
type UserRepository interface {
	Create(ctx context.Context, user domain.User, roleIDs []int64) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetWithRoles loads a user together with its assigned roles.
	GetWithRoles(ctx context.Context, id int64) (*domain.User, []domain.Role, error)
	RoleIDs(ctx context.Context, userID int64) ([]int64, error)
	// Update replaces the user's profile fields and its full role-assignment set.
	Update(ctx context.Context, user domain.User, roleIDs []int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetFrozen(ctx context.Context, id int64, frozen bool) error
	Delete(ctx context.Context, id int64) error
	DeleteMany(ctx context.Context, ids []int64) (int64, error)
	// List returns non-super-admin users matching the filter plus the total count.
	List(ctx context.Context, filter UserFilter) ([]domain.User, int64, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

const menuColumns = "id, parent_id, type, code, title, icon, path, component, sort, hidden, created_at, updated_at"

// MenuRepository implements port.MenuRepository using PostgreSQL.
type MenuRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewMenuRepository constructs a PostgreSQL-backed menu repository.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *MenuRepository) WithTx(tx pgx.Tx) *MenuRepository {
	if tx == nil {
		return r
	}
	return &MenuRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanMenu(row pgx.Row) (*domain.Menu, error) {
	var menu domain.Menu
	err := row.Scan(
		&menu.ID,
		&menu.ParentID,
		&menu.Type,
		&menu.Code,
		&menu.Title,
		&menu.Icon,
		&menu.Path,
		&menu.Component,
		&menu.Sort,
		&menu.Hidden,
		&menu.CreatedAt,
		&menu.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan menu: %w", err)
	}
	return &menu, nil
}

// Create inserts a menu row and returns its ID.
func (r *MenuRepository) Create(ctx context.Context, menu domain.Menu) (int64, error) {
	stmt, args, err := r.builder.Insert("admin.menus").
		Columns("parent_id", "type", "code", "title", "icon", "path", "component", "sort", "hidden").
		Values(menu.ParentID, menu.Type, menu.Code, menu.Title, menu.Icon, menu.Path, menu.Component, menu.Sort, menu.Hidden).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert menu sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert menu: %w", err)
	}

	return id, nil
}

// GetByID retrieves a menu row by its ID.
func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*domain.Menu, error) {
	stmt, args, err := r.builder.Select(menuColumns).
		From("admin.menus").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select menu sql: %w", err)
	}

	return scanMenu(r.exec.QueryRow(ctx, stmt, args...))
}

// Update modifies an existing menu row.
func (r *MenuRepository) Update(ctx context.Context, menu domain.Menu) error {
	stmt, args, err := r.builder.Update("admin.menus").
		Set("parent_id", menu.ParentID).
		Set("type", menu.Type).
		Set("code", menu.Code).
		Set("title", menu.Title).
		Set("icon", menu.Icon).
		Set("path", menu.Path).
		Set("component", menu.Component).
		Set("sort", menu.Sort).
		Set("hidden", menu.Hidden).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": menu.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update menu sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update menu: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a menu row. Children are reparented as roots on the next
// tree assembly rather than deleted.
func (r *MenuRepository) Delete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Delete("admin.menus").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete menu sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete menu: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List retrieves all menu rows ordered by sort then id.
func (r *MenuRepository) List(ctx context.Context) ([]domain.Menu, error) {
	stmt, args, err := r.builder.Select(menuColumns).
		From("admin.menus").
		OrderBy("sort ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list menus sql: %w", err)
	}

	return r.queryMenus(ctx, stmt, args)
}

// ListByTypes retrieves menu rows of the given types ordered by sort then id.
func (r *MenuRepository) ListByTypes(ctx context.Context, types []domain.MenuType) ([]domain.Menu, error) {
	if len(types) == 0 {
		return r.List(ctx)
	}

	values := make([]string, 0, len(types))
	for _, t := range types {
		values = append(values, string(t))
	}

	stmt, args, err := r.builder.Select(menuColumns).
		From("admin.menus").
		Where(squirrel.Eq{"type": values}).
		OrderBy("sort ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list menus by type sql: %w", err)
	}

	return r.queryMenus(ctx, stmt, args)
}

func (r *MenuRepository) queryMenus(ctx context.Context, stmt string, args []any) ([]domain.Menu, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query menus: %w", err)
	}
	defer rows.Close()

	menus := make([]domain.Menu, 0)
	for rows.Next() {
		menu, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, *menu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menus: %w", err)
	}

	return menus, nil
}

var _ port.MenuRepository = (*MenuRepository)(nil)

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

const roleColumns = "id, name, code, description, menu_permissions, feature_permissions, api_permissions, created_at, updated_at"

// RoleRepository implements role persistence operations. Permission codes
// live on the role row as text arrays.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a PostgreSQL-backed role repository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Code,
		&role.Description,
		&role.MenuPermissions,
		&role.FeaturePermissions,
		&role.ApiPermissions,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

// Create inserts a new role and returns its ID.
func (r *RoleRepository) Create(ctx context.Context, role domain.Role) (int64, error) {
	stmt, args, err := r.builder.Insert("admin.roles").
		Columns("name", "code", "description", "menu_permissions", "feature_permissions", "api_permissions").
		Values(role.Name, role.Code, role.Description, role.MenuPermissions, role.FeaturePermissions, role.ApiPermissions).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert role sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert role: %w", err)
	}

	return id, nil
}

// GetByID retrieves a role by its ID.
func (r *RoleRepository) GetByID(ctx context.Context, id int64) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("admin.roles").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by id sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByCode retrieves a role by its unique code.
func (r *RoleRepository) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("admin.roles").
		Where(squirrel.Eq{"code": code}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role by code sql: %w", err)
	}

	return scanRole(r.exec.QueryRow(ctx, stmt, args...))
}

// Update modifies an existing role, replacing its permission arrays.
func (r *RoleRepository) Update(ctx context.Context, role domain.Role) error {
	stmt, args, err := r.builder.Update("admin.roles").
		Set("name", role.Name).
		Set("code", role.Code).
		Set("description", role.Description).
		Set("menu_permissions", role.MenuPermissions).
		Set("feature_permissions", role.FeaturePermissions).
		Set("api_permissions", role.ApiPermissions).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": role.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update role: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a role and detaches its user assignments.
func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	deleted, err := r.DeleteMany(ctx, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteMany removes the given roles, detaching user assignments in the same
// transaction, and returns the number of role rows removed.
func (r *RoleRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete roles: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt, args, err := r.builder.Delete("admin.user_roles").
		Where(squirrel.Eq{"role_id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build detach role users sql: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return 0, fmt.Errorf("detach role users: %w", err)
	}

	stmt, args, err = r.builder.Delete("admin.roles").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete roles sql: %w", err)
	}

	res, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete roles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete roles: %w", err)
	}

	return res.RowsAffected(), nil
}

// List returns roles matching the filter plus the total count.
func (r *RoleRepository) List(ctx context.Context, filter port.RoleFilter) ([]domain.Role, int64, error) {
	where := squirrel.And{}
	if filter.Name != "" {
		where = append(where, squirrel.ILike{"name": "%" + filter.Name + "%"})
	}
	if filter.Code != "" {
		where = append(where, squirrel.ILike{"code": "%" + filter.Code + "%"})
	}

	countQuery := r.builder.Select("COUNT(*)").From("admin.roles")
	if len(where) > 0 {
		countQuery = countQuery.Where(where)
	}
	countStmt, countArgs, err := countQuery.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count roles sql: %w", err)
	}

	var total int64
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.PageSize)
	query := r.builder.Select(roleColumns).
		From("admin.roles").
		OrderBy("id ASC").
		Limit(limit).
		Offset(offset)
	if len(where) > 0 {
		query = query.Where(where)
	}
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list roles sql: %w", err)
	}

	roles, err := r.queryRoles(ctx, stmt, args)
	if err != nil {
		return nil, 0, err
	}

	return roles, total, nil
}

// ListAll retrieves every role sorted by ID.
func (r *RoleRepository) ListAll(ctx context.Context) ([]domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns).
		From("admin.roles").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list all roles sql: %w", err)
	}

	return r.queryRoles(ctx, stmt, args)
}

// ListByIDs retrieves the roles with the given IDs. Missing IDs are skipped.
func (r *RoleRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Role, error) {
	if len(ids) == 0 {
		return []domain.Role{}, nil
	}

	stmt, args, err := r.builder.Select(roleColumns).
		From("admin.roles").
		Where(squirrel.Eq{"id": ids}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build roles by ids sql: %w", err)
	}

	return r.queryRoles(ctx, stmt, args)
}

func (r *RoleRepository) queryRoles(ctx context.Context, stmt string, args []any) ([]domain.Role, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}

	return roles, nil
}

var _ port.RoleRepository = (*RoleRepository)(nil)

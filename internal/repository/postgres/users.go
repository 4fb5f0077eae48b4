package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sunhaoxiang/pure-admin-service/internal/core/domain"
	"github.com/sunhaoxiang/pure-admin-service/internal/core/port"
	"github.com/sunhaoxiang/pure-admin-service/internal/repository"
)

const userColumns = "id, username, password_hash, nick_name, email, phone, head_pic, is_super_admin, is_frozen, created_at, updated_at"

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.NickName,
		&user.Email,
		&user.Phone,
		&user.HeadPic,
		&user.IsSuperAdmin,
		&user.IsFrozen,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a user row and its role assignments in one transaction.
func (r *UserRepository) Create(ctx context.Context, user domain.User, roleIDs []int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt, args, err := r.builder.Insert("admin.users").
		Columns("username", "password_hash", "nick_name", "email", "phone", "head_pic", "is_super_admin", "is_frozen").
		Values(user.Username, user.PasswordHash, user.NickName, user.Email, user.Phone, user.HeadPic, user.IsSuperAdmin, user.IsFrozen).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert user sql: %w", err)
	}

	var id int64
	if err := tx.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrConflict
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	if err := r.replaceRoles(ctx, tx, id, roleIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create user: %w", err)
	}

	return id, nil
}

func (r *UserRepository) replaceRoles(ctx context.Context, exec pgExecutor, userID int64, roleIDs []int64) error {
	stmt, args, err := r.builder.Delete("admin.user_roles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear user roles sql: %w", err)
	}
	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("clear user roles: %w", err)
	}

	if len(roleIDs) == 0 {
		return nil
	}

	assignedAt := time.Now().UTC()
	query := r.builder.Insert("admin.user_roles").
		Columns("user_id", "role_id", "created_at")
	for _, roleID := range roleIDs {
		query = query.Values(userID, roleID, assignedAt)
	}

	stmt, args, err = query.Suffix("ON CONFLICT DO NOTHING").ToSql()
	if err != nil {
		return fmt.Errorf("build assign user roles sql: %w", err)
	}
	if _, err := exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("assign user roles: %w", err)
	}

	return nil
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns).
		From("admin.users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by id sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetByUsername retrieves a user by its unique username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns).
		From("admin.users").
		Where(squirrel.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by username sql: %w", err)
	}

	return scanUser(r.exec.QueryRow(ctx, stmt, args...))
}

// GetWithRoles loads a user together with its assigned roles.
func (r *UserRepository) GetWithRoles(ctx context.Context, id int64) (*domain.User, []domain.Role, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	stmt, args, err := r.builder.Select(
		"r.id", "r.name", "r.code", "r.description",
		"r.menu_permissions", "r.feature_permissions", "r.api_permissions",
		"r.created_at", "r.updated_at",
	).
		From("admin.roles r").
		Join("admin.user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": id}).
		OrderBy("r.id ASC").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("build user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	roles := make([]domain.Role, 0)
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate user roles: %w", err)
	}

	return user, roles, nil
}

// RoleIDs returns the IDs of the roles assigned to the user.
func (r *UserRepository) RoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	stmt, args, err := r.builder.Select("role_id").
		From("admin.user_roles").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("role_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build user role ids sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user role ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user role id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user role ids: %w", err)
	}

	return ids, nil
}

// Update replaces the user's profile fields and its full role-assignment set.
func (r *UserRepository) Update(ctx context.Context, user domain.User, roleIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update user: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt, args, err := r.builder.Update("admin.users").
		Set("nick_name", user.NickName).
		Set("email", user.Email).
		Set("phone", user.Phone).
		Set("head_pic", user.HeadPic).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	res, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := r.replaceRoles(ctx, tx, user.ID, roleIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update user: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	stmt, args, err := r.builder.Update("admin.users").
		Set("password_hash", passwordHash).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetFrozen toggles the account's frozen flag.
func (r *UserRepository) SetFrozen(ctx context.Context, id int64, frozen bool) error {
	stmt, args, err := r.builder.Update("admin.users").
		Set("is_frozen", frozen).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set frozen sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set frozen: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a user and its role assignments.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	deleted, err := r.DeleteMany(ctx, []int64{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteMany removes the given users and their role assignments, returning
// the number of user rows removed. Missing IDs are skipped.
func (r *UserRepository) DeleteMany(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete users: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt, args, err := r.builder.Delete("admin.user_roles").
		Where(squirrel.Eq{"user_id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build detach user roles sql: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return 0, fmt.Errorf("detach user roles: %w", err)
	}

	stmt, args, err = r.builder.Delete("admin.users").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete users sql: %w", err)
	}

	res, err := tx.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete users: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete users: %w", err)
	}

	return res.RowsAffected(), nil
}

// List returns non-super-admin users matching the filter plus the total count.
func (r *UserRepository) List(ctx context.Context, filter port.UserFilter) ([]domain.User, int64, error) {
	where := squirrel.And{squirrel.Eq{"is_super_admin": false}}
	if filter.Username != "" {
		where = append(where, squirrel.ILike{"username": "%" + filter.Username + "%"})
	}
	if filter.NickName != "" {
		where = append(where, squirrel.ILike{"nick_name": "%" + filter.NickName + "%"})
	}
	if filter.Email != "" {
		where = append(where, squirrel.ILike{"email": "%" + filter.Email + "%"})
	}
	if filter.Phone != "" {
		where = append(where, squirrel.ILike{"phone": "%" + filter.Phone + "%"})
	}

	countStmt, countArgs, err := r.builder.Select("COUNT(*)").
		From("admin.users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count users sql: %w", err)
	}

	var total int64
	if err := r.exec.QueryRow(ctx, countStmt, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	limit, offset := normalizePage(filter.Page, filter.PageSize)
	stmt, args, err := r.builder.Select(userColumns).
		From("admin.users").
		Where(where).
		OrderBy("id ASC").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list users sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate users: %w", err)
	}

	return users, total, nil
}

var _ port.UserRepository = (*UserRepository)(nil)

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

const apiColumns = "id, parent_id, type, code, method, path, title, sort, created_at, updated_at"

// ApiRepository implements port.ApiRepository using PostgreSQL.
type ApiRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewApiRepository constructs a PostgreSQL-backed API-permission repository.
func NewApiRepository(pool *pgxpool.Pool) *ApiRepository {
	return &ApiRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *ApiRepository) WithTx(tx pgx.Tx) *ApiRepository {
	if tx == nil {
		return r
	}
	return &ApiRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

func scanApi(row pgx.Row) (*domain.Api, error) {
	var api domain.Api
	err := row.Scan(
		&api.ID,
		&api.ParentID,
		&api.Type,
		&api.Code,
		&api.Method,
		&api.Path,
		&api.Title,
		&api.Sort,
		&api.CreatedAt,
		&api.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan api: %w", err)
	}
	return &api, nil
}

// Create inserts an API-permission row and returns its ID.
func (r *ApiRepository) Create(ctx context.Context, api domain.Api) (int64, error) {
	stmt, args, err := r.builder.Insert("admin.apis").
		Columns("parent_id", "type", "code", "method", "path", "title", "sort").
		Values(api.ParentID, api.Type, api.Code, api.Method, api.Path, api.Title, api.Sort).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert api sql: %w", err)
	}

	var id int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert api: %w", err)
	}

	return id, nil
}

// GetByID retrieves an API-permission row by its ID.
func (r *ApiRepository) GetByID(ctx context.Context, id int64) (*domain.Api, error) {
	stmt, args, err := r.builder.Select(apiColumns).
		From("admin.apis").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select api sql: %w", err)
	}

	return scanApi(r.exec.QueryRow(ctx, stmt, args...))
}

// Update modifies an existing API-permission row.
func (r *ApiRepository) Update(ctx context.Context, api domain.Api) error {
	stmt, args, err := r.builder.Update("admin.apis").
		Set("parent_id", api.ParentID).
		Set("type", api.Type).
		Set("code", api.Code).
		Set("method", api.Method).
		Set("path", api.Path).
		Set("title", api.Title).
		Set("sort", api.Sort).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": api.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update api sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update api: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes an API-permission row.
func (r *ApiRepository) Delete(ctx context.Context, id int64) error {
	stmt, args, err := r.builder.Delete("admin.apis").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete api sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete api: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// List retrieves all API-permission rows ordered by sort then id.
func (r *ApiRepository) List(ctx context.Context) ([]domain.Api, error) {
	stmt, args, err := r.builder.Select(apiColumns).
		From("admin.apis").
		OrderBy("sort ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list apis sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query apis: %w", err)
	}
	defer rows.Close()

	apis := make([]domain.Api, 0)
	for rows.Next() {
		api, err := scanApi(rows)
		if err != nil {
			return nil, err
		}
		apis = append(apis, *api)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate apis: %w", err)
	}

	return apis, nil
}

var _ port.ApiRepository = (*ApiRepository)(nil)

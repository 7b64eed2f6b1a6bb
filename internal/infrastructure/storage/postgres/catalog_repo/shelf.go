package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/domain"
	"tannery/internal/domain/catalogs/shelf"
	"tannery/internal/infrastructure/storage/postgres"
)

const shelfTable = "cat_shelves"

var shelfColumns = []string{
	"id", "code", "name", "section", "is_active",
	"deletion_mark", "version",
}

// ShelfRepo implements shelf.Repository.
type ShelfRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ shelf.Repository = (*ShelfRepo)(nil)

// NewShelfRepo creates a new shelf repository.
func NewShelfRepo(txManager *postgres.TxManager) *ShelfRepo {
	return &ShelfRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new shelf.
func (r *ShelfRepo) Create(ctx context.Context, s *shelf.Shelf) error {
	q := r.builder.Insert(shelfTable).
		Columns(shelfColumns...).
		Values(s.ID, s.Code, s.Name, s.Section, s.IsActive, s.DeletionMark, s.Version)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert shelf: %w", err)
	}
	return nil
}

// GetByID retrieves a shelf by ID.
func (r *ShelfRepo) GetByID(ctx context.Context, shelfID id.ID) (*shelf.Shelf, error) {
	return r.getOne(ctx, squirrel.Eq{"id": shelfID}, shelfID.String())
}

// GetByCode retrieves a shelf by code.
func (r *ShelfRepo) GetByCode(ctx context.Context, code string) (*shelf.Shelf, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *ShelfRepo) getOne(ctx context.Context, cond squirrel.Eq, key string) (*shelf.Shelf, error) {
	q := r.builder.Select(shelfColumns...).
		From(shelfTable).
		Where(cond).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var s shelf.Shelf
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("shelf", key)
		}
		return nil, fmt.Errorf("get shelf: %w", err)
	}
	return &s, nil
}

// Update rewrites shelf fields with optimistic version check.
func (r *ShelfRepo) Update(ctx context.Context, s *shelf.Shelf) error {
	q := r.builder.Update(shelfTable).
		Set("code", s.Code).
		Set("name", s.Name).
		Set("section", s.Section).
		Set("is_active", s.IsActive).
		Set("version", s.Version+1).
		Where(squirrel.Eq{"id": s.ID, "version": s.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update shelf: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("shelf was modified concurrently").
			WithDetail("id", s.ID.String())
	}
	s.Version++
	return nil
}

// SetDeletionMark toggles the soft-delete flag.
func (r *ShelfRepo) SetDeletionMark(ctx context.Context, shelfID id.ID, marked bool) error {
	q := r.builder.Update(shelfTable).
		Set("deletion_mark", marked).
		Where(squirrel.Eq{"id": shelfID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set deletion mark: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("shelf", shelfID.String())
	}
	return nil
}

// List retrieves shelves with filtering and pagination.
func (r *ShelfRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*shelf.Shelf], error) {
	var result domain.ListResult[*shelf.Shelf]

	base := r.builder.Select(shelfColumns...).From(shelfTable)
	countQ := r.builder.Select("COUNT(*)").From(shelfTable)

	base = applyListFilter(base, filter)
	countQ = applyListFilter(countQ, filter)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count shelves: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	orderBy, err := parseOrderBy(shelfColumns, filter.OrderBy)
	if err != nil {
		return result, err
	}
	base = base.OrderBy(orderBy).Limit(uint64(limit)).Offset(uint64(filter.Offset))

	sql, args, err := base.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select shelves: %w", err)
	}

	result.Limit = limit
	result.Offset = filter.Offset
	return result, nil
}

// Exists checks if a shelf exists by ID.
func (r *ShelfRepo) Exists(ctx context.Context, shelfID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": shelfID})
}

// ExistsByCode checks if a shelf code is taken.
func (r *ShelfRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"code": code})
}

func (r *ShelfRepo) exists(ctx context.Context, cond squirrel.Eq) (bool, error) {
	q := r.builder.Select("1").From(shelfTable).Where(cond).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &one, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("check shelf exists: %w", err)
	}
	return true, nil
}

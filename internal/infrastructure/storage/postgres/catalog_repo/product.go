// Package catalog_repo provides PostgreSQL implementations for the
// catalog repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain"
	"tannery/internal/domain/catalogs/product"
	"tannery/internal/domain/ledger"
	"tannery/internal/domain/units"
	"tannery/internal/infrastructure/storage/postgres"
)

const productTable = "cat_products"

var productColumns = []string{
	"id", "code", "name",
	"main_unit", "sub_unit",
	"stock", "sub_stock",
	"deletion_mark", "version",
}

// ProductRepo implements product.Repository and the unit lookup the
// ledger needs for conversions.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ product.Repository = (*ProductRepo)(nil)
var _ ledger.ProductStore = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productTable).
		Columns(productColumns...).
		Values(p.ID, p.Code, p.Name, p.MainUnit, p.SubUnit, p.Stock, p.SubStock, p.DeletionMark, p.Version)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"id": productID}, productID.String())
}

// GetByCode retrieves a product by code.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *ProductRepo) getOne(ctx context.Context, cond squirrel.Eq, key string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productTable).
		Where(cond).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Update rewrites product fields with optimistic version check.
// Derived stock fields are excluded; they belong to UpdateAggregates.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productTable).
		Set("code", p.Code).
		Set("name", p.Name).
		Set("main_unit", p.MainUnit).
		Set("sub_unit", p.SubUnit).
		Set("version", p.Version+1).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("product was modified concurrently").
			WithDetail("id", p.ID.String())
	}
	p.Version++

	// Unit changes must reach the units cache on every instance.
	if _, err := querier.Exec(ctx, "SELECT pg_notify('cat_products_changed', $1)", p.ID.String()); err != nil {
		return fmt.Errorf("notify product change: %w", err)
	}
	return nil
}

// SetDeletionMark toggles the soft-delete flag.
func (r *ProductRepo) SetDeletionMark(ctx context.Context, productID id.ID, marked bool) error {
	q := r.builder.Update(productTable).
		Set("deletion_mark", marked).
		Where(squirrel.Eq{"id": productID})

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
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// List retrieves products with filtering and pagination.
func (r *ProductRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*product.Product], error) {
	var result domain.ListResult[*product.Product]

	base := r.builder.Select(productColumns...).From(productTable)
	countQ := r.builder.Select("COUNT(*)").From(productTable)

	base = applyListFilter(base, filter)
	countQ = applyListFilter(countQ, filter)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	orderBy, err := parseOrderBy(productColumns, filter.OrderBy)
	if err != nil {
		return result, err
	}
	base = base.OrderBy(orderBy).Limit(uint64(limit)).Offset(uint64(filter.Offset))

	sql, args, err := base.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select products: %w", err)
	}

	result.Limit = limit
	result.Offset = filter.Offset
	return result, nil
}

// Exists checks if a product exists by ID.
func (r *ProductRepo) Exists(ctx context.Context, productID id.ID) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"id": productID})
}

// ExistsByCode checks if a product code is taken.
func (r *ProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, squirrel.Eq{"code": code})
}

func (r *ProductRepo) exists(ctx context.Context, cond squirrel.Eq) (bool, error) {
	q := r.builder.Select("1").From(productTable).Where(cond).Limit(1)

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
		return false, fmt.Errorf("check product exists: %w", err)
	}
	return true, nil
}

// GetUnits returns the product's unit pair for the ledger.
func (r *ProductRepo) GetUnits(ctx context.Context, productID id.ID) (units.Unit, units.Unit, error) {
	q := r.builder.Select("main_unit", "sub_unit").
		From(productTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return "", "", fmt.Errorf("build query: %w", err)
	}

	var row struct {
		MainUnit units.Unit `db:"main_unit"`
		SubUnit  units.Unit `db:"sub_unit"`
	}
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", "", apperror.NewNotFound("product", productID.String())
		}
		return "", "", fmt.Errorf("get product units: %w", err)
	}
	return row.MainUnit, row.SubUnit, nil
}

// UpdateAggregates writes the derived stock totals.
// No version bump: these fields are ledger-owned, not operator edits.
func (r *ProductRepo) UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error {
	q := r.builder.Update(productTable).
		Set("stock", stock).
		Set("sub_stock", subStock).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update aggregates: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}
	return nil
}

// applyListFilter adds the shared catalog list conditions.
func applyListFilter(q squirrel.SelectBuilder, filter domain.ListFilter) squirrel.SelectBuilder {
	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	return q
}

package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tannery/internal/core/id"
	"tannery/internal/domain/ledger"
)

// GetShelfStockForUpdate returns the balance with a pessimistic row lock.
// A missing row means the pair has never been touched and reads as zero.
func (r *Repo) GetShelfStockForUpdate(ctx context.Context, productID, shelfID id.ID) (ledger.ShelfStock, error) {
	var stock ledger.ShelfStock

	sql := `
		SELECT product_id, shelf_id, stock, updated_at
		FROM reg_shelf_stock
		WHERE product_id = $1 AND shelf_id = $2
		FOR UPDATE
	`

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &stock, sql, productID, shelfID); err != nil {
		if pgxscan.NotFound(err) {
			return ledger.ShelfStock{ProductID: productID, ShelfID: shelfID}, nil
		}
		return stock, fmt.Errorf("get shelf stock for update: %w", err)
	}
	return stock, nil
}

// UpsertShelfStock writes the balance keyed on (product_id, shelf_id).
func (r *Repo) UpsertShelfStock(ctx context.Context, stock ledger.ShelfStock) error {
	sql := `
		INSERT INTO reg_shelf_stock (product_id, shelf_id, stock, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, shelf_id)
		DO UPDATE SET stock = EXCLUDED.stock, updated_at = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, stock.ProductID, stock.ShelfID, stock.Stock, stock.UpdatedAt); err != nil {
		return fmt.Errorf("upsert shelf stock: %w", err)
	}
	return nil
}

// GetShelfStocksByProduct returns all balance rows for a product.
func (r *Repo) GetShelfStocksByProduct(ctx context.Context, productID id.ID) ([]ledger.ShelfStock, error) {
	q := r.builder.Select("product_id", "shelf_id", "stock", "updated_at").
		From(shelfStockTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("shelf_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stocks []ledger.ShelfStock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &stocks, sql, args...); err != nil {
		return nil, fmt.Errorf("select shelf stocks: %w", err)
	}
	return stocks, nil
}

// GetShelfStocksByShelf returns the non-zero balances on a shelf.
func (r *Repo) GetShelfStocksByShelf(ctx context.Context, shelfID id.ID) ([]ledger.ShelfStock, error) {
	q := r.builder.Select("product_id", "shelf_id", "stock", "updated_at").
		From(shelfStockTable).
		Where(squirrel.Eq{"shelf_id": shelfID}).
		Where(squirrel.NotEq{"stock": int64(0)}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var stocks []ledger.ShelfStock
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &stocks, sql, args...); err != nil {
		return nil, fmt.Errorf("select shelf stocks: %w", err)
	}
	return stocks, nil
}

// Package ledger_repo provides the PostgreSQL implementation of the
// movement ledger storage.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/domain"
	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/storage/postgres"
)

const (
	movementsTable  = "reg_movements"
	shelfStockTable = "reg_shelf_stock"
)

var movementColumns = []string{
	"id", "number", "transfer_type", "product_id",
	"delivered_qty", "required_qty",
	"from_shelf_id", "to_shelf_id",
	"invoice_id", "production_order_id",
	"created_by", "received_by",
	"version", "created_at", "updated_at",
}

// Repo implements ledger.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*Repo)(nil)

// NewRepo creates a new ledger repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func movementValues(m *ledger.Movement) []any {
	return []any{
		m.ID, m.Number, m.TransferType, m.ProductID,
		m.DeliveredQty, m.RequiredQty,
		m.FromShelfID, m.ToShelfID,
		m.InvoiceID, m.ProductionOrderID,
		m.CreatedBy, m.ReceivedBy,
		m.Version, m.CreatedAt, m.UpdatedAt,
	}
}

// CreateMovement inserts a single movement.
func (r *Repo) CreateMovement(ctx context.Context, m *ledger.Movement) error {
	q := r.builder.Insert(movementsTable).
		Columns(movementColumns...).
		Values(movementValues(m)...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// CreateMovements batch inserts movements.
// Uses COPY when inside a transaction, multi-row INSERT otherwise.
func (r *Repo) CreateMovements(ctx context.Context, movements []*ledger.Movement) error {
	if len(movements) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementColumns, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(movementsTable).Columns(movementColumns...)
	for _, m := range movements {
		q = q.Values(movementValues(m)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}
	return nil
}

// GetMovement retrieves a movement by ID.
func (r *Repo) GetMovement(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	q := r.builder.Select(movementColumns...).
		From(movementsTable).
		Where(squirrel.Eq{"id": movementID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.Movement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID.String())
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

// UpdateMovement rewrites a movement row.
func (r *Repo) UpdateMovement(ctx context.Context, m *ledger.Movement) error {
	q := r.builder.Update(movementsTable).
		Set("transfer_type", m.TransferType).
		Set("product_id", m.ProductID).
		Set("delivered_qty", m.DeliveredQty).
		Set("required_qty", m.RequiredQty).
		Set("from_shelf_id", m.FromShelfID).
		Set("to_shelf_id", m.ToShelfID).
		Set("received_by", m.ReceivedBy).
		Set("version", m.Version).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", m.ID.String())
	}
	return nil
}

// DeleteMovement removes a movement row.
func (r *Repo) DeleteMovement(ctx context.Context, movementID id.ID) error {
	q := r.builder.Delete(movementsTable).
		Where(squirrel.Eq{"id": movementID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	return nil
}

// ListMovements retrieves movements with filtering and pagination.
func (r *Repo) ListMovements(ctx context.Context, filter ledger.MovementFilter) (domain.ListResult[*ledger.Movement], error) {
	var result domain.ListResult[*ledger.Movement]

	base := r.builder.Select(movementColumns...).From(movementsTable)
	base = applyMovementFilter(base, filter)

	countQ := r.builder.Select("COUNT(*)").From(movementsTable)
	countQ = applyMovementFilter(countQ, filter)

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count movements: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	base = base.OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(filter.Offset))

	sql, args, err := base.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select movements: %w", err)
	}

	result.Limit = limit
	result.Offset = filter.Offset
	return result, nil
}

func applyMovementFilter(q squirrel.SelectBuilder, filter ledger.MovementFilter) squirrel.SelectBuilder {
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.ShelfID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_shelf_id": *filter.ShelfID},
			squirrel.Eq{"to_shelf_id": *filter.ShelfID},
		})
	}
	if filter.InvoiceID != nil {
		q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
	}
	if filter.TransferType != nil {
		q = q.Where(squirrel.Eq{"transfer_type": *filter.TransferType})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}
	return q
}

// HasMovementsForInvoice reports whether any movement references the invoice.
func (r *Repo) HasMovementsForInvoice(ctx context.Context, invoiceID id.ID) (bool, error) {
	return r.existsWhere(ctx, squirrel.Eq{"invoice_id": invoiceID})
}

// HasMovementsForProductionOrder reports whether any movement references the order.
func (r *Repo) HasMovementsForProductionOrder(ctx context.Context, orderID id.ID) (bool, error) {
	return r.existsWhere(ctx, squirrel.Eq{"production_order_id": orderID})
}

func (r *Repo) existsWhere(ctx context.Context, cond squirrel.Eq) (bool, error) {
	q := r.builder.Select("1").
		From(movementsTable).
		Where(cond).
		Limit(1)

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
		return false, fmt.Errorf("check movements: %w", err)
	}
	return true, nil
}

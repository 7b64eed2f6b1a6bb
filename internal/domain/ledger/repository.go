package ledger

import (
	"context"
	"time"

	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain"
	"tannery/internal/domain/units"
)

// ShelfStock is the materialized current balance for one (product, shelf)
// pair, derived from the ledger. Created lazily on first movement touching
// the pair; never negative. Written exclusively by the delta aggregator.
type ShelfStock struct {
	ProductID id.ID          `db:"product_id" json:"productId"`
	ShelfID   id.ID          `db:"shelf_id" json:"shelfId"`
	Stock     types.Quantity `db:"stock" json:"stock"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// MovementFilter for filtering movement queries.
type MovementFilter struct {
	ProductID    *id.ID
	ShelfID      *id.ID
	InvoiceID    *id.ID
	TransferType *TransferType
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}

// Repository defines the store contract the ledger engine expects:
// row read-by-key, upsert-by-composite-key, insert, update, delete,
// and filtered range queries on movements and shelf stock.
type Repository interface {
	// Movement operations

	CreateMovement(ctx context.Context, m *Movement) error

	// CreateMovements batch inserts movements (finalization triggers).
	CreateMovements(ctx context.Context, movements []*Movement) error

	GetMovement(ctx context.Context, movementID id.ID) (*Movement, error)

	UpdateMovement(ctx context.Context, m *Movement) error

	DeleteMovement(ctx context.Context, movementID id.ID) error

	ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error)

	// HasMovementsForInvoice reports whether any movement references the
	// invoice. Idempotency guard for invoice finalization.
	HasMovementsForInvoice(ctx context.Context, invoiceID id.ID) (bool, error)

	// HasMovementsForProductionOrder is the production-order counterpart.
	HasMovementsForProductionOrder(ctx context.Context, orderID id.ID) (bool, error)

	// Balance operations (aggregator-owned)

	// GetShelfStockForUpdate returns the balance row with a row lock,
	// treating a missing row as zero.
	GetShelfStockForUpdate(ctx context.Context, productID, shelfID id.ID) (ShelfStock, error)

	// UpsertShelfStock writes the balance via an idempotent upsert keyed
	// on (product_id, shelf_id).
	UpsertShelfStock(ctx context.Context, stock ShelfStock) error

	// GetShelfStocksByProduct returns all balance rows for a product.
	GetShelfStocksByProduct(ctx context.Context, productID id.ID) ([]ShelfStock, error)

	// GetShelfStocksByShelf returns all non-zero balances on a shelf.
	GetShelfStocksByShelf(ctx context.Context, shelfID id.ID) ([]ShelfStock, error)
}

// ProductStore is the slice of the product catalog the ledger needs:
// unit lookup for conversion and the aggregate write-back owned by the
// synchronizer.
type ProductStore interface {
	// GetUnits returns the product's main and secondary units.
	// The secondary unit may be empty.
	GetUnits(ctx context.Context, productID id.ID) (main, sub units.Unit, err error)

	// UpdateAggregates writes the derived total stock fields.
	UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error
}

// AuditRecorder captures before-images of manual ledger edits.
// The ledger mutates movements in place; the audit trail is what
// preserves "the stock level at time T" forensics.
type AuditRecorder interface {
	RecordChange(ctx context.Context, action string, before *Movement) error
}

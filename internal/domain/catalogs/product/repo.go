package product

import (
	"context"

	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain"
)

// Repository defines the interface for Product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	Update(ctx context.Context, p *Product) error
	SetDeletionMark(ctx context.Context, productID id.ID, marked bool) error
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error)
	Exists(ctx context.Context, productID id.ID) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// UpdateAggregates writes the derived stock fields.
	// Reserved for the ledger synchronizer; no other caller may use it.
	UpdateAggregates(ctx context.Context, productID id.ID, stock, subStock types.Quantity) error
}

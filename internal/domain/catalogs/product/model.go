// Package product provides the Product catalog.
// Products are the stock-bearing entities of the ledger; their aggregate
// stock fields are derived state owned by the ledger synchronizer.
package product

import (
	"context"

	"tannery/internal/core/apperror"
	"tannery/internal/core/entity"
	"tannery/internal/core/types"
	"tannery/internal/domain/units"
)

// Product represents a stock-bearing item.
type Product struct {
	entity.Catalog

	// MainUnit is the unit delivered_qty is expressed in
	MainUnit units.Unit `db:"main_unit" json:"mainUnit"`

	// SubUnit is the optional secondary unit for the converted total
	SubUnit units.Unit `db:"sub_unit" json:"subUnit,omitempty"`

	// Stock is the total across all shelves (main unit).
	// Derived: written only by the ledger synchronizer.
	Stock types.Quantity `db:"stock" json:"stock"`

	// SubStock is Stock converted to SubUnit (0 when not convertible).
	// Derived: written only by the ledger synchronizer.
	SubStock types.Quantity `db:"sub_stock" json:"subStock"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, mainUnit units.Unit) *Product {
	return &Product{
		Catalog:  entity.NewCatalog(code, name),
		MainUnit: mainUnit,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !units.Valid(p.MainUnit) {
		return apperror.NewValidation("invalid main unit").
			WithDetail("field", "mainUnit").
			WithDetail("value", string(p.MainUnit))
	}

	if p.SubUnit != "" && !units.Valid(p.SubUnit) {
		return apperror.NewValidation("invalid sub unit").
			WithDetail("field", "subUnit").
			WithDetail("value", string(p.SubUnit))
	}

	return nil
}

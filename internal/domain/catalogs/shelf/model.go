// Package shelf provides the Shelf catalog.
// Shelves are the physical stock locations the ledger balances are keyed by.
package shelf

import (
	"context"

	"tannery/internal/core/entity"
)

// Shelf represents a physical storage location.
type Shelf struct {
	entity.Catalog

	// Section is an optional grouping label (room, rack, aisle)
	Section *string `db:"section" json:"section,omitempty"`

	// IsActive indicates if the shelf accepts new movements
	IsActive bool `db:"is_active" json:"isActive"`
}

// NewShelf creates a new Shelf with required fields.
func NewShelf(code, name string) *Shelf {
	return &Shelf{
		Catalog:  entity.NewCatalog(code, name),
		IsActive: true,
	}
}

// Validate implements entity.Validatable.
func (s *Shelf) Validate(ctx context.Context) error {
	return s.Catalog.Validate(ctx)
}

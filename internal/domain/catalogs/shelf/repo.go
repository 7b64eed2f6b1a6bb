package shelf

import (
	"context"

	"tannery/internal/core/id"
	"tannery/internal/domain"
)

// Repository defines the interface for Shelf persistence.
type Repository interface {
	Create(ctx context.Context, s *Shelf) error
	GetByID(ctx context.Context, shelfID id.ID) (*Shelf, error)
	GetByCode(ctx context.Context, code string) (*Shelf, error)
	Update(ctx context.Context, s *Shelf) error
	SetDeletionMark(ctx context.Context, shelfID id.ID, marked bool) error
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Shelf], error)
	Exists(ctx context.Context, shelfID id.ID) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

package shelf

import (
	"context"
	"fmt"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/tx"
	"tannery/internal/domain"
	"tannery/pkg/logger"
)

// Service provides business logic for the Shelf catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Shelf service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Create creates a new shelf.
func (s *Service) Create(ctx context.Context, sh *Shelf) error {
	if err := sh.Validate(ctx); err != nil {
		return err
	}

	if sh.Code != "" {
		exists, err := s.repo.ExistsByCode(ctx, sh.Code)
		if err != nil {
			return fmt.Errorf("check code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("shelf", "code", sh.Code)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, sh)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "shelf created", "id", sh.ID, "code", sh.Code)
	return nil
}

// GetByID retrieves a shelf.
func (s *Service) GetByID(ctx context.Context, shelfID id.ID) (*Shelf, error) {
	sh, err := s.repo.GetByID(ctx, shelfID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("shelf", shelfID.String())
		}
		return nil, err
	}
	return sh, nil
}

// Update updates shelf master data.
func (s *Service) Update(ctx context.Context, sh *Shelf) error {
	if err := sh.Validate(ctx); err != nil {
		return err
	}
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, sh)
	})
}

// Delete soft-deletes a shelf.
func (s *Service) Delete(ctx context.Context, shelfID id.ID) error {
	if _, err := s.GetByID(ctx, shelfID); err != nil {
		return err
	}
	return s.repo.SetDeletionMark(ctx, shelfID, true)
}

// List retrieves shelves with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Shelf], error) {
	return s.repo.List(ctx, filter)
}

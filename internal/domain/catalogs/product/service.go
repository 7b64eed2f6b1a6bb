package product

import (
	"context"
	"fmt"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/tx"
	"tannery/internal/domain"
	"tannery/pkg/logger"
)

// Service provides business logic for the Product catalog.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
	}
}

// Create creates a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if p.Code != "" {
		exists, err := s.repo.ExistsByCode(ctx, p.Code)
		if err != nil {
			return fmt.Errorf("check code: %w", err)
		}
		if exists {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "code", p.Code)
	return nil
}

// GetByID retrieves a product.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, err
	}
	return p, nil
}

// Update updates product master data.
// Aggregate stock fields are not touched here; they belong to the synchronizer.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, p)
	})
}

// Delete soft-deletes a product.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	if _, err := s.GetByID(ctx, productID); err != nil {
		return err
	}
	return s.repo.SetDeletionMark(ctx, productID, true)
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, filter)
}

package ledger

import (
	"context"
	"fmt"
	"time"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/tx"
	"tannery/internal/core/types"
	"tannery/internal/domain"
	"tannery/internal/domain/units"
	"tannery/pkg/logger"
)

// NumberSource allocates human-readable voucher numbers.
type NumberSource interface {
	Next(ctx context.Context, prefix string) (string, error)
}

// movementNumberPrefix seeds every voucher number ("MV-2026-00042").
const movementNumberPrefix = "MV"

// Service provides the ledger's business operations: the delta aggregator,
// the aggregate stock synchronizer, and the manual movement paths.
type Service struct {
	repo      Repository
	products  ProductStore
	txManager tx.Manager
	audit     AuditRecorder // optional
	numbers   NumberSource  // optional
}

// NewService creates a new ledger service.
// audit may be nil to disable edit auditing; numbers may be nil to leave
// movements unnumbered.
func NewService(repo Repository, products ProductStore, txManager tx.Manager, audit AuditRecorder, numbers NumberSource) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
		audit:     audit,
		numbers:   numbers,
	}
}

// assignNumber stamps a voucher number on an unnumbered movement.
func (s *Service) assignNumber(ctx context.Context, m *Movement) error {
	if s.numbers == nil || m.Number != "" {
		return nil
	}
	number, err := s.numbers.Next(ctx, movementNumberPrefix)
	if err != nil {
		return fmt.Errorf("assign movement number: %w", err)
	}
	m.Number = number
	return nil
}

// --- Delta aggregator & balance updater ---

// applyDeltas applies a batch of signed quantity changes to the per-shelf
// stock cache. Deltas are aggregated by (product, shelf) first, then every
// resulting balance is read (row-locked, missing row = 0) and checked
// before any row is written, so a batch that would drive any key negative
// mutates nothing.
//
// Must be called inside a transaction; the aggregator is the only writer
// of shelf stock rows.
func (s *Service) applyDeltas(ctx context.Context, deltas []Delta) error {
	aggregated := aggregateDeltas(deltas)

	next := make([]ShelfStock, 0, len(aggregated))
	for _, d := range aggregated {
		if d.Qty.IsZero() {
			continue
		}

		current, err := s.repo.GetShelfStockForUpdate(ctx, d.ProductID, d.ShelfID)
		if err != nil {
			return fmt.Errorf("get shelf stock for %s/%s: %w", d.ProductID, d.ShelfID, err)
		}

		balance := current.Stock + d.Qty
		if balance.IsNegative() {
			return apperror.NewInsufficientStock(
				d.ProductID.String(),
				d.ShelfID.String(),
				d.Qty.Neg().Float64(),
				current.Stock.Float64(),
			)
		}

		next = append(next, ShelfStock{
			ProductID: d.ProductID,
			ShelfID:   d.ShelfID,
			Stock:     balance,
			UpdatedAt: time.Now().UTC(),
		})
	}

	for _, row := range next {
		if err := s.repo.UpsertShelfStock(ctx, row); err != nil {
			return fmt.Errorf("upsert shelf stock for %s/%s: %w", row.ProductID, row.ShelfID, err)
		}
	}

	return nil
}

// --- Aggregate stock synchronizer ---

// Resync recomputes a product's total stock and its secondary-unit
// equivalent by re-scanning its shelf stock rows. Intentionally a full
// re-derivation, never an incremental patch, so it self-heals after
// partial failures or out-of-band edits. Idempotent.
func (s *Service) Resync(ctx context.Context, productID id.ID) error {
	rows, err := s.repo.GetShelfStocksByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("get shelf stocks: %w", err)
	}

	var total types.Quantity
	for _, row := range rows {
		total += row.Stock
	}

	mainUnit, subUnit, err := s.products.GetUnits(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product units: %w", err)
	}

	var subStock types.Quantity
	if mainUnit != "" && subUnit != "" {
		subStock = units.ConvertQuantity(total, mainUnit, subUnit)
	}

	if err := s.products.UpdateAggregates(ctx, productID, total, subStock); err != nil {
		return fmt.Errorf("update product aggregates: %w", err)
	}

	return nil
}

// ResyncMany resyncs every distinct product once, for bulk operations.
func (s *Service) ResyncMany(ctx context.Context, productIDs []id.ID) error {
	seen := make(map[id.ID]struct{}, len(productIDs))
	for _, productID := range productIDs {
		if _, ok := seen[productID]; ok {
			continue
		}
		seen[productID] = struct{}{}
		if err := s.Resync(ctx, productID); err != nil {
			return err
		}
	}
	return nil
}

// --- Manual movement paths ---

// CreateManual validates, persists and applies one operator-entered movement.
func (s *Service) CreateManual(ctx context.Context, input ManualMovementInput) (*Movement, error) {
	m, err := s.normalizeManual(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.assignNumber(ctx, m); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.applyDeltas(ctx, m.Deltas()); err != nil {
			return err
		}
		if err := s.repo.CreateMovement(ctx, m); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
		return s.Resync(ctx, m.ProductID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement created",
		"id", m.ID,
		"transfer_type", m.TransferType,
		"product_id", m.ProductID,
		"qty", m.DeliveredQty,
	)
	return m, nil
}

// UpdateManual edits an operator-entered movement in place. The rollback of
// the old effect and the application of the new effect are submitted to the
// aggregator in one batch, so overlapping shelves net out algebraically.
func (s *Service) UpdateManual(ctx context.Context, movementID id.ID, input ManualMovementInput) (*Movement, error) {
	old, err := s.GetMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if old.IsSystem() {
		return nil, apperror.NewMovementReadOnly(movementID.String())
	}

	updated, err := s.normalizeManual(ctx, input)
	if err != nil {
		return nil, err
	}
	updated.ID = old.ID
	updated.Number = old.Number
	updated.CreatedBy = old.CreatedBy
	updated.CreatedAt = old.CreatedAt
	updated.Version = old.Version + 1

	batch := append(negateDeltas(old.Deltas()), updated.Deltas()...)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.recordAudit(ctx, "update", old); err != nil {
			return err
		}
		if err := s.applyDeltas(ctx, batch); err != nil {
			return err
		}
		if err := s.repo.UpdateMovement(ctx, updated); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		return s.ResyncMany(ctx, []id.ID{old.ProductID, updated.ProductID})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement updated", "id", updated.ID, "version", updated.Version)
	return updated, nil
}

// DeleteManual removes an operator-entered movement and rolls back its effect.
func (s *Service) DeleteManual(ctx context.Context, movementID id.ID) error {
	old, err := s.GetMovement(ctx, movementID)
	if err != nil {
		return err
	}
	if old.IsSystem() {
		return apperror.NewMovementReadOnly(movementID.String())
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.recordAudit(ctx, "delete", old); err != nil {
			return err
		}
		if err := s.applyDeltas(ctx, negateDeltas(old.Deltas())); err != nil {
			return err
		}
		if err := s.repo.DeleteMovement(ctx, movementID); err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}
		return s.Resync(ctx, old.ProductID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "movement deleted", "id", movementID)
	return nil
}

// --- System movement path (finalization triggers) ---

// RecordSystem persists a prepared batch of system-generated movements and
// applies their deltas atomically, then resyncs every product touched.
// Callers (the finalization triggers) are responsible for idempotency
// guards and shelf assignment checks.
func (s *Service) RecordSystem(ctx context.Context, movements []*Movement) error {
	if len(movements) == 0 {
		return nil
	}

	var deltas []Delta
	productIDs := make([]id.ID, 0, len(movements))
	for i, m := range movements {
		if err := m.Validate(ctx); err != nil {
			return err
		}
		if !m.IsSystem() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: not system-tagged", i))
		}
		if err := s.assignNumber(ctx, m); err != nil {
			return err
		}
		if m.RequiredQty.IsZero() {
			mainUnit, subUnit, err := s.products.GetUnits(ctx, m.ProductID)
			if err != nil {
				return fmt.Errorf("get product units: %w", err)
			}
			if mainUnit != "" && subUnit != "" {
				m.RequiredQty = units.ConvertQuantity(m.DeliveredQty, mainUnit, subUnit)
			}
		}
		deltas = append(deltas, m.Deltas()...)
		productIDs = append(productIDs, m.ProductID)
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.applyDeltas(ctx, deltas); err != nil {
			return err
		}
		if err := s.repo.CreateMovements(ctx, movements); err != nil {
			return fmt.Errorf("create movements: %w", err)
		}
		return s.ResyncMany(ctx, productIDs)
	})
}

// --- Read surface ---

// readOnly runs fn in a read-only transaction when the manager supports
// them, otherwise straight through.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if ro, ok := s.txManager.(tx.ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return fn(ctx)
}

// GetMovement retrieves a movement by id.
func (s *Service) GetMovement(ctx context.Context, movementID id.ID) (*Movement, error) {
	var m *Movement
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetMovement(ctx, movementID)
		return err
	})
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID.String())
		}
		return nil, err
	}
	return m, nil
}

// ListMovements retrieves movements with filtering.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error) {
	var result domain.ListResult[*Movement]
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.repo.ListMovements(ctx, filter)
		return err
	})
	return result, err
}

// GetShelfStocksByProduct returns the balance rows for a product.
func (s *Service) GetShelfStocksByProduct(ctx context.Context, productID id.ID) ([]ShelfStock, error) {
	var stocks []ShelfStock
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		stocks, err = s.repo.GetShelfStocksByProduct(ctx, productID)
		return err
	})
	return stocks, err
}

// GetShelfStocksByShelf returns the non-zero balances on a shelf.
func (s *Service) GetShelfStocksByShelf(ctx context.Context, shelfID id.ID) ([]ShelfStock, error) {
	var stocks []ShelfStock
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		stocks, err = s.repo.GetShelfStocksByShelf(ctx, shelfID)
		return err
	})
	return stocks, err
}

func (s *Service) recordAudit(ctx context.Context, action string, before *Movement) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.RecordChange(ctx, action, before); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

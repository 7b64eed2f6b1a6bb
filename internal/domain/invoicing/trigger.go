// Package invoicing bridges document finalization to the inventory ledger.
// When an invoice or production order is finalized elsewhere in the system,
// the trigger translates its lines into system-tagged ledger movements.
package invoicing

import (
	"context"
	"fmt"
	"time"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/tx"
	"tannery/internal/core/types"
	"tannery/internal/domain/ledger"
	"tannery/pkg/logger"
)

// Direction distinguishes the two invoice kinds.
type Direction string

const (
	DirectionPurchase Direction = "purchase"
	DirectionSale     Direction = "sale"
)

// InvoiceLine is one finalized invoice position the trigger consumes.
type InvoiceLine struct {
	LineNo    int
	ProductID id.ID
	ShelfID   *id.ID
	Qty       types.Quantity
}

// ProductionLine is one finalized production order position.
// Output lines put finished goods onto a shelf; material lines
// take consumed inputs off one.
type ProductionLine struct {
	LineNo    int
	ProductID id.ID
	ShelfID   *id.ID
	Qty       types.Quantity
	Output    bool
}

// Trigger converts finalized documents into ledger movements.
type Trigger struct {
	ledger    *ledger.Service
	repo      ledger.Repository
	txManager tx.Manager
}

func NewTrigger(ledgerSvc *ledger.Service, repo ledger.Repository, txManager tx.Manager) *Trigger {
	return &Trigger{
		ledger:    ledgerSvc,
		repo:      repo,
		txManager: txManager,
	}
}

// OnInvoiceFinalized records the stock effect of a finalized invoice:
// one incoming movement per line for a purchase, one outgoing per line
// for a sale. Safe to call more than once; re-finalization of an invoice
// that already produced movements is a no-op. Every line must carry a
// shelf, otherwise the whole invoice is rejected before anything is
// written.
func (t *Trigger) OnInvoiceFinalized(ctx context.Context, invoiceID id.ID, direction Direction, lines []InvoiceLine, actor string) error {
	var transferType ledger.TransferType
	switch direction {
	case DirectionPurchase:
		transferType = ledger.TransferPurchaseInvoice
	case DirectionSale:
		transferType = ledger.TransferSalesInvoice
	default:
		return apperror.NewValidation(fmt.Sprintf("unknown invoice direction %q", direction))
	}

	movements := make([]*ledger.Movement, 0, len(lines))
	now := time.Now().UTC()
	for _, line := range lines {
		if line.ShelfID == nil {
			return apperror.NewShelfRequired(line.LineNo)
		}
		if !line.Qty.IsPositive() {
			continue
		}

		m := &ledger.Movement{
			ID:           id.New(),
			TransferType: transferType,
			ProductID:    line.ProductID,
			DeliveredQty: line.Qty,
			InvoiceID:    &invoiceID,
			CreatedBy:    actor,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if direction == DirectionPurchase {
			m.ToShelfID = line.ShelfID
		} else {
			m.FromShelfID = line.ShelfID
		}
		movements = append(movements, m)
	}

	return t.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := t.repo.HasMovementsForInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("check invoice movements: %w", err)
		}
		if exists {
			logger.Info(ctx, "invoice already posted to ledger, skipping", "invoice_id", invoiceID)
			return nil
		}
		return t.ledger.RecordSystem(ctx, movements)
	})
}

// OnProductionOrderFinalized records a finished production order:
// consumed materials leave their shelves, produced goods arrive on
// theirs, all under one production movement batch. Same idempotency
// and shelf rules as invoices.
func (t *Trigger) OnProductionOrderFinalized(ctx context.Context, orderID id.ID, lines []ProductionLine, actor string) error {
	movements := make([]*ledger.Movement, 0, len(lines))
	now := time.Now().UTC()
	for _, line := range lines {
		if line.ShelfID == nil {
			return apperror.NewShelfRequired(line.LineNo)
		}
		if !line.Qty.IsPositive() {
			continue
		}

		m := &ledger.Movement{
			ID:                id.New(),
			TransferType:      ledger.TransferProduction,
			ProductID:         line.ProductID,
			DeliveredQty:      line.Qty,
			ProductionOrderID: &orderID,
			CreatedBy:         actor,
			Version:           1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if line.Output {
			m.ToShelfID = line.ShelfID
		} else {
			m.FromShelfID = line.ShelfID
		}
		movements = append(movements, m)
	}

	return t.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		exists, err := t.repo.HasMovementsForProductionOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("check production order movements: %w", err)
		}
		if exists {
			logger.Info(ctx, "production order already posted to ledger, skipping", "order_id", orderID)
			return nil
		}
		return t.ledger.RecordSystem(ctx, movements)
	})
}

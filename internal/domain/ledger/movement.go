// Package ledger provides the inventory movement ledger: the append-mostly
// log of physical stock events and the derived per-shelf and per-product
// balances. Stock is never mutated directly; every change flows through a
// Movement and its signed deltas.
package ledger

import (
	"context"
	"time"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
)

// TransferType tags the provenance of a movement.
type TransferType string

const (
	// Manual categories: created and edited by operators.
	TransferOpeningBalance TransferType = "opening_balance"
	TransferInventoryCount TransferType = "inventory_count"
	TransferWaste          TransferType = "waste"

	// System categories: created only by automated triggers.
	TransferSalesInvoice    TransferType = "sales_invoice"
	TransferPurchaseInvoice TransferType = "purchase_invoice"
	TransferProduction      TransferType = "production"
)

// IsManual reports whether the transfer type may be created by an operator.
func (t TransferType) IsManual() bool {
	switch t {
	case TransferOpeningBalance, TransferInventoryCount, TransferWaste:
		return true
	}
	return false
}

// IsSystem reports whether the transfer type is reserved for automated producers.
func (t TransferType) IsSystem() bool {
	switch t {
	case TransferSalesInvoice, TransferPurchaseInvoice, TransferProduction:
		return true
	}
	return false
}

// Valid reports whether t is a known transfer type.
func (t TransferType) Valid() bool {
	return t.IsManual() || t.IsSystem()
}

// VoucherType is the display-level direction of a movement,
// derived from which shelf fields are populated. Never stored.
type VoucherType string

const (
	VoucherIncoming VoucherType = "incoming"
	VoucherOutgoing VoucherType = "outgoing"
	VoucherTransfer VoucherType = "transfer"
)

// Movement is the ledger's atomic fact: one recorded physical stock event
// with a signed effect on one or two (product, shelf) balances.
// Movements are immutable by default; in-place edits are permitted only
// for manual, non-system-tagged rows, always paired with a delta
// rollback/reapply.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// Number is the human-readable voucher number assigned on creation.
	Number string `db:"number" json:"number,omitempty"`

	TransferType TransferType `db:"transfer_type" json:"transferType"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// DeliveredQty is the magnitude in the product's main unit (never negative).
	DeliveredQty types.Quantity `db:"delivered_qty" json:"deliveredQty"`

	// RequiredQty is the same event expressed in the product's secondary
	// unit, derived via unit conversion (0 when not convertible).
	RequiredQty types.Quantity `db:"required_qty" json:"requiredQty"`

	// Presence/absence of each shelf determines semantic direction.
	FromShelfID *id.ID `db:"from_shelf_id" json:"fromShelfId,omitempty"`
	ToShelfID   *id.ID `db:"to_shelf_id" json:"toShelfId,omitempty"`

	// Back-references marking the movement as system-originated.
	InvoiceID         *id.ID `db:"invoice_id" json:"invoiceId,omitempty"`
	ProductionOrderID *id.ID `db:"production_order_id" json:"productionOrderId,omitempty"`

	CreatedBy  string `db:"created_by" json:"createdBy,omitempty"`
	ReceivedBy string `db:"received_by" json:"receivedBy,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// VoucherType derives the display direction from the populated shelf fields.
// A movement with neither shelf set is malformed and yields "".
func (m *Movement) VoucherType() VoucherType {
	switch {
	case m.FromShelfID != nil && m.ToShelfID != nil:
		return VoucherTransfer
	case m.ToShelfID != nil:
		return VoucherIncoming
	case m.FromShelfID != nil:
		return VoucherOutgoing
	}
	return ""
}

// IsSystem reports whether the movement is system-generated and therefore
// read-only to manual editors. True when the transfer type is a system
// category or a back-reference is present.
func (m *Movement) IsSystem() bool {
	return m.TransferType.IsSystem() || m.InvoiceID != nil || m.ProductionOrderID != nil
}

// Validate checks the shape invariant every persisted movement must satisfy.
func (m *Movement) Validate(ctx context.Context) error {
	if !m.TransferType.Valid() {
		return apperror.NewValidation("unknown transfer type").
			WithDetail("field", "transferType").
			WithDetail("value", string(m.TransferType))
	}

	if id.IsNil(m.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if m.DeliveredQty.IsNegative() {
		return apperror.NewValidation("quantity cannot be negative").
			WithDetail("field", "deliveredQty")
	}

	// A movement with both shelf fields null is meaningless.
	if m.FromShelfID == nil && m.ToShelfID == nil {
		return apperror.NewValidation("at least one shelf is required").
			WithDetail("field", "fromShelfId")
	}

	if m.TransferType == TransferWaste && m.ToShelfID != nil {
		return apperror.NewValidation("waste movements may only have a source shelf").
			WithDetail("field", "toShelfId")
	}

	return nil
}

// Deltas returns the signed balance effects of this movement:
// +qty on the destination shelf, -qty on the source shelf.
func (m *Movement) Deltas() []Delta {
	deltas := make([]Delta, 0, 2)
	if m.ToShelfID != nil {
		deltas = append(deltas, Delta{
			ProductID: m.ProductID,
			ShelfID:   *m.ToShelfID,
			Qty:       m.DeliveredQty,
		})
	}
	if m.FromShelfID != nil {
		deltas = append(deltas, Delta{
			ProductID: m.ProductID,
			ShelfID:   *m.FromShelfID,
			Qty:       m.DeliveredQty.Neg(),
		})
	}
	return deltas
}

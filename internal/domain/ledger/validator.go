package ledger

import (
	"context"
	"fmt"
	"time"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/units"
)

// ManualMovementInput is the operator-facing payload for creating or
// editing a movement. System back-references are deliberately absent.
type ManualMovementInput struct {
	TransferType TransferType   `json:"transferType"`
	ProductID    id.ID          `json:"productId"`
	DeliveredQty types.Quantity `json:"deliveredQty"`
	FromShelfID  *id.ID         `json:"fromShelfId,omitempty"`
	ToShelfID    *id.ID         `json:"toShelfId,omitempty"`
	CreatedBy    string         `json:"-"`
	ReceivedBy   string         `json:"receivedBy,omitempty"`
}

// normalizeManual validates an operator-entered payload and builds the
// movement it describes. Rules, in order:
//
//   - the transfer type must be one reserved for manual entry;
//   - waste always leaves stock: a destination shelf, if sent, is
//     dropped and a source shelf is required, so the voucher comes out
//     outgoing no matter what the operator asked for;
//   - the quantity must be strictly positive (direction comes from the
//     shelf sides, not the sign);
//   - at least one shelf must be set; a transfer between shelves needs
//     two distinct ones.
//
// The secondary-unit quantity is derived from the product's unit pair;
// it is never operator-supplied.
func (s *Service) normalizeManual(ctx context.Context, input ManualMovementInput) (*Movement, error) {
	if !input.TransferType.Valid() {
		return nil, apperror.NewValidation(fmt.Sprintf("unknown transfer type %q", input.TransferType))
	}
	if !input.TransferType.IsManual() {
		return nil, apperror.NewValidation(fmt.Sprintf("transfer type %q is not allowed for manual entry", input.TransferType))
	}
	if id.IsNil(input.ProductID) {
		return nil, apperror.NewValidation("product is required")
	}
	if input.TransferType == TransferWaste {
		input.ToShelfID = nil
		if input.FromShelfID == nil {
			return nil, apperror.NewValidation("waste requires a source shelf")
		}
	}
	if !input.DeliveredQty.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive")
	}

	m := &Movement{
		ID:           id.New(),
		TransferType: input.TransferType,
		ProductID:    input.ProductID,
		DeliveredQty: input.DeliveredQty,
		FromShelfID:  input.FromShelfID,
		ToShelfID:    input.ToShelfID,
		CreatedBy:    input.CreatedBy,
		ReceivedBy:   input.ReceivedBy,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	switch m.VoucherType() {
	case VoucherTransfer:
		if *m.FromShelfID == *m.ToShelfID {
			return nil, apperror.NewValidation("source and destination shelves must differ")
		}
	case VoucherIncoming, VoucherOutgoing:
	default:
		return nil, apperror.NewValidation("at least one shelf is required")
	}

	mainUnit, subUnit, err := s.products.GetUnits(ctx, m.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product units: %w", err)
	}
	if mainUnit != "" && subUnit != "" {
		m.RequiredQty = units.ConvertQuantity(m.DeliveredQty, mainUnit, subUnit)
	}

	if err := m.Validate(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

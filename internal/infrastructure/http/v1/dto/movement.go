package dto

import (
	"time"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/ledger"
)

// MovementRequest is the payload for creating or editing a manual movement.
type MovementRequest struct {
	TransferType string  `json:"transferType" binding:"required"`
	ProductID    string  `json:"productId" binding:"required"`
	DeliveredQty float64 `json:"deliveredQty" binding:"required"`
	FromShelfID  string  `json:"fromShelfId"`
	ToShelfID    string  `json:"toShelfId"`
	ReceivedBy   string  `json:"receivedBy"`
}

// ToInput converts the request to the ledger input, attributing it to actor.
func (r *MovementRequest) ToInput(actor string) (ledger.ManualMovementInput, error) {
	var input ledger.ManualMovementInput

	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return input, apperror.NewValidation("invalid product id").WithDetail("field", "productId")
	}

	fromShelfID, err := id.NilIfEmpty(r.FromShelfID)
	if err != nil {
		return input, apperror.NewValidation("invalid shelf id").WithDetail("field", "fromShelfId")
	}
	toShelfID, err := id.NilIfEmpty(r.ToShelfID)
	if err != nil {
		return input, apperror.NewValidation("invalid shelf id").WithDetail("field", "toShelfId")
	}

	return ledger.ManualMovementInput{
		TransferType: ledger.TransferType(r.TransferType),
		ProductID:    productID,
		DeliveredQty: types.NewQuantityFromFloat64(r.DeliveredQty),
		FromShelfID:  fromShelfID,
		ToShelfID:    toShelfID,
		CreatedBy:    actor,
		ReceivedBy:   r.ReceivedBy,
	}, nil
}

// MovementResponse is the API shape of a movement.
type MovementResponse struct {
	ID                string    `json:"id"`
	Number            string    `json:"number,omitempty"`
	TransferType      string    `json:"transferType"`
	VoucherType       string    `json:"voucherType"`
	ProductID         string    `json:"productId"`
	DeliveredQty      float64   `json:"deliveredQty"`
	RequiredQty       float64   `json:"requiredQty"`
	FromShelfID       string    `json:"fromShelfId,omitempty"`
	ToShelfID         string    `json:"toShelfId,omitempty"`
	InvoiceID         string    `json:"invoiceId,omitempty"`
	ProductionOrderID string    `json:"productionOrderId,omitempty"`
	System            bool      `json:"system"`
	CreatedBy         string    `json:"createdBy,omitempty"`
	ReceivedBy        string    `json:"receivedBy,omitempty"`
	Version           int       `json:"version"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// FromMovement maps a ledger movement to its API shape.
func FromMovement(m *ledger.Movement) MovementResponse {
	resp := MovementResponse{
		ID:           m.ID.String(),
		Number:       m.Number,
		TransferType: string(m.TransferType),
		VoucherType:  string(m.VoucherType()),
		ProductID:    m.ProductID.String(),
		DeliveredQty: m.DeliveredQty.Float64(),
		RequiredQty:  m.RequiredQty.Float64(),
		System:       m.IsSystem(),
		CreatedBy:    m.CreatedBy,
		ReceivedBy:   m.ReceivedBy,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.FromShelfID != nil {
		resp.FromShelfID = m.FromShelfID.String()
	}
	if m.ToShelfID != nil {
		resp.ToShelfID = m.ToShelfID.String()
	}
	if m.InvoiceID != nil {
		resp.InvoiceID = m.InvoiceID.String()
	}
	if m.ProductionOrderID != nil {
		resp.ProductionOrderID = m.ProductionOrderID.String()
	}
	return resp
}

// MovementListRequest contains movement list filters.
type MovementListRequest struct {
	PaginationRequest
	ProductID    string     `form:"productId"`
	ShelfID      string     `form:"shelfId"`
	InvoiceID    string     `form:"invoiceId"`
	TransferType string     `form:"transferType"`
	FromDate     *time.Time `form:"fromDate" time_format:"2006-01-02T15:04:05Z07:00"`
	ToDate       *time.Time `form:"toDate" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the request to a ledger filter.
func (r *MovementListRequest) ToFilter() (ledger.MovementFilter, error) {
	r.Defaults()
	filter := ledger.MovementFilter{
		FromDate: r.FromDate,
		ToDate:   r.ToDate,
		Limit:    r.Limit,
		Offset:   r.Offset,
	}

	productID, err := id.NilIfEmpty(r.ProductID)
	if err != nil {
		return filter, apperror.NewValidation("invalid product id").WithDetail("field", "productId")
	}
	filter.ProductID = productID

	shelfID, err := id.NilIfEmpty(r.ShelfID)
	if err != nil {
		return filter, apperror.NewValidation("invalid shelf id").WithDetail("field", "shelfId")
	}
	filter.ShelfID = shelfID

	invoiceID, err := id.NilIfEmpty(r.InvoiceID)
	if err != nil {
		return filter, apperror.NewValidation("invalid invoice id").WithDetail("field", "invoiceId")
	}
	filter.InvoiceID = invoiceID

	if r.TransferType != "" {
		t := ledger.TransferType(r.TransferType)
		if !t.Valid() {
			return filter, apperror.NewValidation("unknown transfer type").WithDetail("field", "transferType")
		}
		filter.TransferType = &t
	}

	return filter, nil
}

package dto

import (
	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/invoicing"
)

// InvoiceLineRequest is one invoice position in a finalization payload.
type InvoiceLineRequest struct {
	LineNo    int     `json:"lineNo" binding:"required"`
	ProductID string  `json:"productId" binding:"required"`
	ShelfID   string  `json:"shelfId"`
	Qty       float64 `json:"qty"`
}

// FinalizeInvoiceRequest is the payload for an invoice finalization.
type FinalizeInvoiceRequest struct {
	Direction string               `json:"direction" binding:"required"`
	Lines     []InvoiceLineRequest `json:"lines" binding:"required"`
}

// ToLines converts the request lines to domain invoice lines.
func (r *FinalizeInvoiceRequest) ToLines() ([]invoicing.InvoiceLine, error) {
	lines := make([]invoicing.InvoiceLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("line_no", l.LineNo)
		}
		shelfID, err := id.NilIfEmpty(l.ShelfID)
		if err != nil {
			return nil, apperror.NewValidation("invalid shelf id").
				WithDetail("line_no", l.LineNo)
		}
		lines = append(lines, invoicing.InvoiceLine{
			LineNo:    l.LineNo,
			ProductID: productID,
			ShelfID:   shelfID,
			Qty:       types.NewQuantityFromFloat64(l.Qty),
		})
	}
	return lines, nil
}

// ProductionLineRequest is one production order position.
type ProductionLineRequest struct {
	LineNo    int     `json:"lineNo" binding:"required"`
	ProductID string  `json:"productId" binding:"required"`
	ShelfID   string  `json:"shelfId"`
	Qty       float64 `json:"qty"`
	Output    bool    `json:"output"`
}

// FinalizeProductionRequest is the payload for a production order finalization.
type FinalizeProductionRequest struct {
	Lines []ProductionLineRequest `json:"lines" binding:"required"`
}

// ToLines converts the request lines to domain production lines.
func (r *FinalizeProductionRequest) ToLines() ([]invoicing.ProductionLine, error) {
	lines := make([]invoicing.ProductionLine, 0, len(r.Lines))
	for _, l := range r.Lines {
		productID, err := id.Parse(l.ProductID)
		if err != nil {
			return nil, apperror.NewValidation("invalid product id").
				WithDetail("line_no", l.LineNo)
		}
		shelfID, err := id.NilIfEmpty(l.ShelfID)
		if err != nil {
			return nil, apperror.NewValidation("invalid shelf id").
				WithDetail("line_no", l.LineNo)
		}
		lines = append(lines, invoicing.ProductionLine{
			LineNo:    l.LineNo,
			ProductID: productID,
			ShelfID:   shelfID,
			Qty:       types.NewQuantityFromFloat64(l.Qty),
			Output:    l.Output,
		})
	}
	return lines, nil
}

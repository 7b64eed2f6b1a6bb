package dto

import (
	"time"

	"tannery/internal/domain/ledger"
)

// ShelfStockResponse is the API shape of one balance row.
type ShelfStockResponse struct {
	ProductID string    `json:"productId"`
	ShelfID   string    `json:"shelfId"`
	Stock     float64   `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromShelfStock maps a balance row to its API shape.
func FromShelfStock(s ledger.ShelfStock) ShelfStockResponse {
	return ShelfStockResponse{
		ProductID: s.ProductID.String(),
		ShelfID:   s.ShelfID.String(),
		Stock:     s.Stock.Float64(),
		UpdatedAt: s.UpdatedAt,
	}
}

// ShelfStockListResponse wraps balance rows.
type ShelfStockListResponse struct {
	Items []ShelfStockResponse `json:"items"`
}

// FromShelfStocks maps balance rows to the API shape.
func FromShelfStocks(stocks []ledger.ShelfStock) ShelfStockListResponse {
	items := make([]ShelfStockResponse, len(stocks))
	for i, s := range stocks {
		items[i] = FromShelfStock(s)
	}
	return ShelfStockListResponse{Items: items}
}

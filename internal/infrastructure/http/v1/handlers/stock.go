package handlers

import (
	"github.com/gin-gonic/gin"

	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/http/v1/dto"
)

// StockHandler handles shelf stock balance endpoints.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// ByProduct handles GET /ledger/stock/products/:id
func (h *StockHandler) ByProduct(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	stocks, err := h.service.GetShelfStocksByProduct(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromShelfStocks(stocks))
}

// ByShelf handles GET /ledger/stock/shelves/:id
func (h *StockHandler) ByShelf(c *gin.Context) {
	ctx := c.Request.Context()

	shelfID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	stocks, err := h.service.GetShelfStocksByShelf(ctx, shelfID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromShelfStocks(stocks))
}

// Resync handles POST /ledger/stock/products/:id/resync
func (h *StockHandler) Resync(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Resync(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "aggregates resynchronized")
}

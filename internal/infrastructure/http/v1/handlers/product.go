package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tannery/internal/core/apperror"
	"tannery/internal/core/id"
	"tannery/internal/core/types"
	"tannery/internal/domain/catalogs/product"
	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
	ledger  *ledger.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service, ledgerSvc *ledger.Service) *ProductHandler {
	return &ProductHandler{
		BaseHandler: base,
		service:     service,
		ledger:      ledgerSvc,
	}
}

// Create handles POST /catalog/products
// An openingStock value records an opening balance movement onto
// openingShelfId once the product exists.
func (h *ProductHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := req.ToEntity()
	if err := h.service.Create(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	if req.OpeningStock > 0 {
		shelfID, err := id.Parse(req.OpeningShelfID)
		if err != nil {
			h.Error(c, apperror.NewValidation("openingShelfId is required with openingStock").
				WithDetail("field", "openingShelfId"))
			return
		}
		_, err = h.ledger.CreateManual(ctx, ledger.ManualMovementInput{
			TransferType: ledger.TransferOpeningBalance,
			ProductID:    p.ID,
			DeliveredQty: types.NewQuantityFromFloat64(req.OpeningStock),
			ToShelfID:    &shelfID,
			CreatedBy:    h.GetUserID(c),
		})
		if err != nil {
			h.Error(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, dto.IDResponse{ID: p.ID.String()})
}

// Get handles GET /catalog/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// Update handles PUT /catalog/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(p)
	if err := h.service.Update(ctx, p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// Delete handles DELETE /catalog/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, productID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /catalog/products
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.service.List(ctx, req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(p *product.Product) dto.ProductResponse {
		return dto.FromProduct(p)
	}))
}

package handlers

import (
	"github.com/gin-gonic/gin"

	"tannery/internal/domain/catalogs/shelf"
	"tannery/internal/infrastructure/http/v1/dto"
)

// ShelfHandler handles shelf catalog endpoints.
type ShelfHandler struct {
	*BaseHandler
	service *shelf.Service
}

// NewShelfHandler creates a new shelf handler.
func NewShelfHandler(base *BaseHandler, service *shelf.Service) *ShelfHandler {
	return &ShelfHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /catalog/shelves
func (h *ShelfHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateShelfRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s := req.ToEntity()
	if err := h.service.Create(ctx, s); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, s.ID.String())
}

// Get handles GET /catalog/shelves/:id
func (h *ShelfHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	shelfID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	s, err := h.service.GetByID(ctx, shelfID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromShelf(s))
}

// Update handles PUT /catalog/shelves/:id
func (h *ShelfHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	shelfID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateShelfRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.service.GetByID(ctx, shelfID)
	if err != nil {
		h.Error(c, err)
		return
	}

	req.ApplyTo(s)
	if err := h.service.Update(ctx, s); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromShelf(s))
}

// Delete handles DELETE /catalog/shelves/:id
func (h *ShelfHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	shelfID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, shelfID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /catalog/shelves
func (h *ShelfHandler) List(c *gin.Context) {
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

	h.OK(c, dto.NewListResponse(result, func(s *shelf.Shelf) dto.ShelfResponse {
		return dto.FromShelf(s)
	}))
}

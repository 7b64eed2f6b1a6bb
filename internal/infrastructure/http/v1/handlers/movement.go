package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tannery/internal/domain/ledger"
	"tannery/internal/infrastructure/http/v1/dto"
	"tannery/internal/infrastructure/storage/postgres"
)

// MovementHandler handles stock movement endpoints.
type MovementHandler struct {
	*BaseHandler
	service *ledger.Service
	audit   *postgres.MovementAudit
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service *ledger.Service, audit *postgres.MovementAudit) *MovementHandler {
	return &MovementHandler{
		BaseHandler: base,
		service:     service,
		audit:       audit,
	}
}

// Create handles POST /ledger/movements
func (h *MovementHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.CreateManual(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromMovement(movement))
}

// Get handles GET /ledger/movements/:id
func (h *MovementHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	movement, err := h.service.GetMovement(ctx, movementID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}

// Update handles PUT /ledger/movements/:id
func (h *MovementHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput(h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movement, err := h.service.UpdateManual(ctx, movementID, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromMovement(movement))
}

// Delete handles DELETE /ledger/movements/:id
func (h *MovementHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteManual(ctx, movementID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// List handles GET /ledger/movements
func (h *MovementHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.MovementListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.ListMovements(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, func(m *ledger.Movement) dto.MovementResponse {
		return dto.FromMovement(m)
	}))
}

// History handles GET /ledger/movements/:id/history
func (h *MovementHandler) History(c *gin.Context) {
	ctx := c.Request.Context()

	movementID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.GetMovementHistory(ctx, movementID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries, "total": len(entries)})
}

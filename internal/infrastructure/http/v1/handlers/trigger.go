package handlers

import (
	"github.com/gin-gonic/gin"

	"tannery/internal/domain/invoicing"
	"tannery/internal/infrastructure/http/v1/dto"
)

// TriggerHandler handles document finalization endpoints.
// Invoicing itself lives in an upstream system; these endpoints accept
// the finalized document lines and record the resulting movements.
type TriggerHandler struct {
	*BaseHandler
	trigger *invoicing.Trigger
}

// NewTriggerHandler creates a new trigger handler.
func NewTriggerHandler(base *BaseHandler, trigger *invoicing.Trigger) *TriggerHandler {
	return &TriggerHandler{
		BaseHandler: base,
		trigger:     trigger,
	}
}

// FinalizeInvoice handles POST /triggers/invoices/:id/finalize
func (h *TriggerHandler) FinalizeInvoice(c *gin.Context) {
	ctx := c.Request.Context()

	invoiceID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.FinalizeInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.trigger.OnInvoiceFinalized(ctx, invoiceID, invoicing.Direction(req.Direction), lines, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "invoice movements recorded")
}

// FinalizeProductionOrder handles POST /triggers/production-orders/:id/finalize
func (h *TriggerHandler) FinalizeProductionOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.FinalizeProductionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	err = h.trigger.OnProductionOrderFinalized(ctx, orderID, lines, h.GetUserID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "production movements recorded")
}

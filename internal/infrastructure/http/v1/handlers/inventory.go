package handlers

import (
	"github.com/gin-gonic/gin"

	"glasserp/internal/infrastructure/http/v1/dto"
)

// InventoryHandler serves raw materials and their stock movements.
type InventoryHandler struct {
	*BaseHandler
	service InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(base *BaseHandler, service InventoryService) *InventoryHandler {
	return &InventoryHandler{BaseHandler: base, service: service}
}

// CreateMaterial handles POST /erp/inventory/materials
func (h *InventoryHandler) CreateMaterial(c *gin.Context) {
	var req dto.MaterialRequest
	if !h.BindJSON(c, &req) {
		return
	}
	m := req.ToEntity()
	if err := h.service.CreateMaterial(c.Request.Context(), m); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, m)
}

// Materials handles GET /erp/inventory/materials
func (h *InventoryHandler) Materials(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.Materials(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// GetMaterial handles GET /erp/inventory/materials/:id
func (h *InventoryHandler) GetMaterial(c *gin.Context) {
	materialID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	m, err := h.service.GetMaterial(c.Request.Context(), materialID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, m)
}

// Record handles POST /erp/inventory/transactions
func (h *InventoryHandler) Record(c *gin.Context) {
	var req dto.StockTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	txn, err := h.service.Record(c.Request.Context(), req.ToMovement())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, txn)
}

// Transactions handles GET /erp/inventory/transactions
func (h *InventoryHandler) Transactions(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.Transactions(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// LowStock handles GET /erp/inventory/low-stock
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.service.LowStock(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": items, "count": len(items)})
}

package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// PurchaseHandler serves purchase orders and the vendor payouts made
// against them.
type PurchaseHandler struct {
	*BaseHandler
	orders   PurchaseService
	payments VendorPaymentService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(base *BaseHandler, orders PurchaseService, payments VendorPaymentService) *PurchaseHandler {
	return &PurchaseHandler{BaseHandler: base, orders: orders, payments: payments}
}

// Create handles POST /erp/vendors/po
func (h *PurchaseHandler) Create(c *gin.Context) {
	var req dto.CreatePORequest
	if !h.BindJSON(c, &req) {
		return
	}
	po, err := h.orders.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, po)
}

// List handles GET /erp/vendors/po
func (h *PurchaseHandler) List(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.orders.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /erp/vendors/po/:id
func (h *PurchaseHandler) Get(c *gin.Context) {
	h.act(c, h.orders.Get)
}

// Submit handles POST /erp/vendors/po/:id/submit
func (h *PurchaseHandler) Submit(c *gin.Context) {
	h.act(c, h.orders.Submit)
}

// Approve handles POST /erp/vendors/po/:id/approve
func (h *PurchaseHandler) Approve(c *gin.Context) {
	h.act(c, h.orders.Approve)
}

// Receive handles POST /erp/vendors/po/:id/receive
func (h *PurchaseHandler) Receive(c *gin.Context) {
	h.act(c, h.orders.Receive)
}

// Reject handles POST /erp/vendors/po/:id/reject
func (h *PurchaseHandler) Reject(c *gin.Context) {
	h.withReason(c, h.orders.Reject)
}

// Cancel handles POST /erp/vendors/po/:id/cancel
func (h *PurchaseHandler) Cancel(c *gin.Context) {
	h.withReason(c, h.orders.Cancel)
}

// UpdateStatus handles PATCH /erp/purchase/orders/:id/status
func (h *PurchaseHandler) UpdateStatus(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.POStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	to, valid := purchase.ParseStatus(req.Status)
	if !valid {
		h.Error(c, apperror.NewFieldValidation("status", "unknown purchase order status "+req.Status))
		return
	}
	po, err := h.orders.UpdateStatus(c.Request.Context(), poID, to, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, po)
}

func (h *PurchaseHandler) act(c *gin.Context, fn func(context.Context, id.ID) (*purchase.PurchaseOrder, error)) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	po, err := fn(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, po)
}

func (h *PurchaseHandler) withReason(c *gin.Context, fn func(context.Context, id.ID, string) (*purchase.PurchaseOrder, error)) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}
	po, err := fn(c.Request.Context(), poID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, po)
}

// InitiatePayment handles POST /erp/vendors/po/:id/initiate-payment
func (h *PurchaseHandler) InitiatePayment(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.InitiatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	started, err := h.payments.Initiate(c.Request.Context(), req.ToInput(poID))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, started)
}

// PaymentStatus handles GET /erp/vendors/payment/:id/status
func (h *PurchaseHandler) PaymentStatus(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	p, err := h.payments.Status(c.Request.Context(), paymentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// RecordManual handles POST /erp/vendors/payment/:id/record-manual
func (h *PurchaseHandler) RecordManual(c *gin.Context) {
	paymentID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var q dto.RecordManualQuery
	if !h.BindQuery(c, &q) {
		return
	}
	p, err := h.payments.RecordManual(c.Request.Context(), paymentID, q.TransactionRef)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Payments handles GET /erp/vendors/payments
func (h *PurchaseHandler) Payments(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.payments.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// CreateBulk handles POST /erp/vendors/bulk-payment
func (h *PurchaseHandler) CreateBulk(c *gin.Context) {
	var req dto.BulkPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	bulk, err := h.payments.CreateBulk(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, bulk)
}

// GetBulk handles GET /erp/vendors/bulk-payment/:id
func (h *PurchaseHandler) GetBulk(c *gin.Context) {
	bulkID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	result, err := h.payments.GetBulk(c.Request.Context(), bulkID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// CompleteBulk handles POST /erp/vendors/bulk-payment/:id/complete
func (h *PurchaseHandler) CompleteBulk(c *gin.Context) {
	bulkID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.payments.CompleteBulk(c.Request.Context(), bulkID, req.TransactionRef)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/id"
	"glasserp/internal/domain/order"
	"glasserp/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves the customer portal and the staff order desk.
type OrderHandler struct {
	*BaseHandler
	service OrderService
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service OrderService) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Calculate handles POST /orders/calculate
func (h *OrderHandler) Calculate(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	pricing, err := h.service.Calculate(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, pricing)
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	created, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, created)
}

// Mine handles GET /orders/my-orders
func (h *OrderHandler) Mine(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.Mine(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// List handles GET /erp/orders
func (h *OrderHandler) List(c *gin.Context) {
	f, ok := h.ListFilter(c)
	if !ok {
		return
	}
	result, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := h.service.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// VerifyPayment handles POST /orders/:id/verify-payment
func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.VerifyPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.VerifyPayment(c.Request.Context(), orderID, req.ToGatewayPayment())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// PayRemaining handles POST /orders/:id/pay-remaining
func (h *OrderHandler) PayRemaining(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.service.PayRemaining(c.Request.Context(), orderID, order.Method(req.Method))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// RemainingPreference handles POST /orders/:id/remaining-preference
func (h *OrderHandler) RemainingPreference(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.PaymentMethodRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.SetRemainingPreference(c.Request.Context(), orderID, order.Method(req.Method))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// CreateDispatchSlip handles POST /orders/:id/create-dispatch-slip
func (h *OrderHandler) CreateDispatchSlip(c *gin.Context) {
	h.act(c, h.service.CreateDispatchSlip)
}

// MarkDispatched handles POST /orders/:id/mark-dispatched
func (h *OrderHandler) MarkDispatched(c *gin.Context) {
	h.act(c, h.service.MarkDispatched)
}

// TransportDispatch handles POST /orders/:id/transport-dispatch
func (h *OrderHandler) TransportDispatch(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.TransportDispatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.TransportDispatch(c.Request.Context(), orderID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// UpdateStatus handles PATCH /erp/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.OrderStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	to, valid := order.ParseStatus(req.Status)
	if !valid {
		h.Error(c, apperror.NewFieldValidation("status", "unknown order status "+req.Status))
		return
	}
	o, err := h.service.UpdateStatus(c.Request.Context(), orderID, to)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Cancel handles POST /erp/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.ReasonRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.Cancel(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// RecordCash handles POST /erp/orders/:id/record-cash
func (h *OrderHandler) RecordCash(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req dto.AmountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	o, err := h.service.RecordCash(c.Request.Context(), orderID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

// Webhook handles POST /payments/webhook. It is unauthenticated; the
// gateway signature is the credential.
func (h *OrderHandler) Webhook(c *gin.Context) {
	var req dto.WebhookRequest
	if !h.BindJSON(c, &req) {
		return
	}
	eventID := req.EventID
	if eventID == "" {
		eventID = c.GetHeader("X-Event-Id")
	}
	if eventID == "" {
		eventID = req.GatewayPaymentID
	}
	if err := h.service.HandleWebhook(c.Request.Context(), eventID, req.ToGatewayPayment()); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "processed")
}

func (h *OrderHandler) act(c *gin.Context, fn func(ctx context.Context, orderID id.ID) (*order.Order, error)) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	o, err := fn(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, o)
}

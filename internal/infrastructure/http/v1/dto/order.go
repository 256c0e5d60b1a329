package dto

import (
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/order"
)

// CreateOrderRequest places a glass order. Width and height are inches.
type CreateOrderRequest struct {
	ProductID         id.ID        `json:"product_id" binding:"required"`
	Thickness         int          `json:"thickness" binding:"required,gt=0"`
	Width             float64      `json:"width" binding:"required,gt=0"`
	Height            float64      `json:"height" binding:"required,gt=0"`
	Quantity          int          `json:"quantity" binding:"required,gt=0,max=10000"`
	TotalPrice        *types.Paise `json:"total_price" binding:"omitempty,gt=0"`
	CustomerProfileID *id.ID       `json:"customer_profile_id"`
	CustomerName      string       `json:"customer_name" binding:"required,max=200"`
	CompanyName       *string      `json:"company_name" binding:"omitempty,max=200"`
	CustomerPhone     string       `json:"customer_phone" binding:"required,in_mobile"`
	CustomerEmail     string       `json:"customer_email" binding:"omitempty,email"`
	AdvancePercent    *int         `json:"advance_percent" binding:"omitempty,min=0,max=100"`
	DeliveryStateCode string       `json:"delivery_state_code" binding:"omitempty,state_code"`
	CustomerGSTIN     *string      `json:"customer_gstin" binding:"omitempty,gstin"`
	RemainingMethod   *string      `json:"remaining_payment_method" binding:"omitempty,oneof=online cash"`
	IsCreditOrder     bool         `json:"is_credit_order"`
}

// ToInput converts to the service input. A missing advance percent means
// full payment up front, or none for credit orders.
func (r *CreateOrderRequest) ToInput() order.CreateInput {
	in := order.CreateInput{
		ProductID:         r.ProductID,
		Thickness:         r.Thickness,
		Width:             r.Width,
		Height:            r.Height,
		Quantity:          r.Quantity,
		OverrideTotal:     r.TotalPrice,
		CustomerProfileID: r.CustomerProfileID,
		CustomerName:      r.CustomerName,
		CompanyName:       r.CompanyName,
		CustomerPhone:     r.CustomerPhone,
		CustomerEmail:     r.CustomerEmail,
		DeliveryStateCode: r.DeliveryStateCode,
		CustomerGSTIN:     r.CustomerGSTIN,
		IsCreditOrder:     r.IsCreditOrder,
	}
	switch {
	case r.AdvancePercent != nil:
		in.AdvancePercent = *r.AdvancePercent
	case !r.IsCreditOrder:
		in.AdvancePercent = 100
	}
	if r.RemainingMethod != nil {
		m := order.Method(*r.RemainingMethod)
		in.RemainingMethod = &m
	}
	return in
}

// VerifyPaymentRequest confirms a gateway checkout.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// ToGatewayPayment converts to the domain value.
func (r *VerifyPaymentRequest) ToGatewayPayment() order.GatewayPayment {
	return order.GatewayPayment{
		GatewayOrderID: r.GatewayOrderID,
		PaymentID:      r.GatewayPaymentID,
		Signature:      r.Signature,
	}
}

// PaymentMethodRequest chooses how the remaining balance is paid.
type PaymentMethodRequest struct {
	Method string `json:"method" binding:"required,oneof=online cash"`
}

// OrderStatusRequest moves an order forward.
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransportDispatchRequest records the vehicle carrying an order.
type TransportDispatchRequest struct {
	TransportCharge types.Paise `json:"transport_charge" binding:"omitempty,min=0"`
	VehicleNumber   string      `json:"vehicle_number" binding:"required,max=20"`
	DriverName      string      `json:"driver_name" binding:"omitempty,max=100"`
}

// ToInput converts to the service input.
func (r *TransportDispatchRequest) ToInput() order.TransportInput {
	return order.TransportInput{
		Charge:        r.TransportCharge,
		VehicleNumber: r.VehicleNumber,
		DriverName:    r.DriverName,
	}
}

// WebhookRequest is a captured-payment notification from the gateway.
// EventID falls back to the payment id when the sender omits it.
type WebhookRequest struct {
	EventID          string `json:"event_id"`
	GatewayOrderID   string `json:"order_id" binding:"required"`
	GatewayPaymentID string `json:"payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}

// ToGatewayPayment converts to the domain value.
func (r *WebhookRequest) ToGatewayPayment() order.GatewayPayment {
	return order.GatewayPayment{
		GatewayOrderID: r.GatewayOrderID,
		PaymentID:      r.GatewayPaymentID,
		Signature:      r.Signature,
	}
}

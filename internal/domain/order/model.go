// Package order implements the customer order lifecycle: pricing and tax at
// creation, advance and remaining payment collection, dispatch gating and
// cancellation.
package order

import (
	"time"

	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/tax"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending          Status = "pending"
	StatusConfirmed        Status = "confirmed"
	StatusProcessing       Status = "processing"
	StatusReadyForDispatch Status = "ready_for_dispatch"
	StatusDispatched       Status = "dispatched"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
	StatusReturned         Status = "returned"
)

// Flow lists the forward moves. Fulfilment may skip ahead but never go back;
// cancellation is open until dispatch.
var Flow = entity.Transitions[Status]{
	StatusPending:          {StatusConfirmed, StatusCancelled},
	StatusConfirmed:        {StatusProcessing, StatusReadyForDispatch, StatusDispatched, StatusCancelled},
	StatusProcessing:       {StatusReadyForDispatch, StatusDispatched, StatusCancelled},
	StatusReadyForDispatch: {StatusDispatched, StatusCancelled},
	StatusDispatched:       {StatusDelivered, StatusReturned},
	StatusDelivered:        {StatusReturned},
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	switch st {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusReadyForDispatch,
		StatusDispatched, StatusDelivered, StatusCancelled, StatusReturned:
		return st, true
	}
	return "", false
}

// AdvanceStatus tracks the advance payment.
type AdvanceStatus string

const (
	AdvancePending AdvanceStatus = "pending"
	AdvancePaid    AdvanceStatus = "paid"
)

// RemainingStatus tracks the balance after the advance.
type RemainingStatus string

const (
	RemainingNotApplicable RemainingStatus = "not_applicable"
	RemainingPending       RemainingStatus = "pending"
	RemainingPaid          RemainingStatus = "paid"
	RemainingCashReceived  RemainingStatus = "cash_received"
)

// PaymentStatus summarises collection of the whole order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

// Method is how the remaining balance is collected.
type Method string

const (
	MethodOnline Method = "online"
	MethodCash   Method = "cash"
)

// ParseMethod validates s.
func ParseMethod(s string) (Method, bool) {
	switch Method(s) {
	case MethodOnline, MethodCash:
		return Method(s), true
	}
	return "", false
}

// AdvancePercents are the selectable advance shares.
var AdvancePercents = []int{0, 25, 50, 75, 100}

// Order is a customer order for one glass product line.
type Order struct {
	entity.Document

	OrderNumber       string  `db:"order_number" json:"order_number"`
	UserID            string  `db:"user_id" json:"user_id"`
	CustomerProfileID *id.ID  `db:"customer_profile_id" json:"customer_profile_id,omitempty"`
	CustomerName      string  `db:"customer_name" json:"customer_name"`
	CompanyName       *string `db:"company_name" json:"company_name,omitempty"`
	CustomerPhone     string  `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerEmail     string  `db:"customer_email" json:"customer_email,omitempty"`

	ProductID     id.ID        `db:"product_id" json:"product_id"`
	ProductName   string       `db:"product_name" json:"product_name"`
	Thickness     int          `db:"thickness" json:"thickness"`
	Width         float64      `db:"width" json:"width"`
	Height        float64      `db:"height" json:"height"`
	Quantity      int          `db:"quantity" json:"quantity"`
	AreaSqft      float64      `db:"area_sqft" json:"area_sqft"`
	OverrideTotal *types.Paise `db:"override_total" json:"override_total,omitempty"`

	DeliveryStateCode string      `db:"delivery_state_code" json:"delivery_state_code"`
	CustomerGSTIN     *string     `db:"customer_gstin" json:"customer_gstin,omitempty"`
	GSTType           tax.GSTType `db:"gst_type" json:"gst_type"`
	HSNCode           string      `db:"hsn_code" json:"hsn_code"`
	CGSTRate          float64     `db:"cgst_rate" json:"cgst_rate"`
	CGSTAmount        types.Paise `db:"cgst_amount" json:"cgst_amount"`
	SGSTRate          float64     `db:"sgst_rate" json:"sgst_rate"`
	SGSTAmount        types.Paise `db:"sgst_amount" json:"sgst_amount"`
	IGSTRate          float64     `db:"igst_rate" json:"igst_rate"`
	IGSTAmount        types.Paise `db:"igst_amount" json:"igst_amount"`
	TotalGST          types.Paise `db:"total_gst" json:"total_gst"`
	BaseAmount        types.Paise `db:"base_amount" json:"base_amount"`
	TotalPrice        types.Paise `db:"total_price" json:"total_price"`

	AdvancePercent            int             `db:"advance_percent" json:"advance_percent"`
	AdvanceAmount             types.Paise     `db:"advance_amount" json:"advance_amount"`
	RemainingAmount           types.Paise     `db:"remaining_amount" json:"remaining_amount"`
	AdvancePaymentStatus      AdvanceStatus   `db:"advance_payment_status" json:"advance_payment_status"`
	RemainingPaymentStatus    RemainingStatus `db:"remaining_payment_status" json:"remaining_payment_status"`
	RemainingPaymentMethod    *Method         `db:"remaining_payment_method" json:"remaining_payment_method,omitempty"`
	PaymentStatus             PaymentStatus   `db:"payment_status" json:"payment_status"`
	GatewayOrderID            *string         `db:"gateway_order_id" json:"gateway_order_id,omitempty"`
	GatewayPaymentID          *string         `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	RemainingGatewayOrderID   *string         `db:"remaining_gateway_order_id" json:"remaining_gateway_order_id,omitempty"`
	RemainingGatewayPaymentID *string         `db:"remaining_gateway_payment_id" json:"remaining_gateway_payment_id,omitempty"`
	IsCreditOrder             bool            `db:"is_credit_order" json:"is_credit_order"`
	AdvancePaidAt             *time.Time      `db:"advance_paid_at" json:"advance_paid_at,omitempty"`
	RemainingPaidAt           *time.Time      `db:"remaining_paid_at" json:"remaining_paid_at,omitempty"`
	CashReceivedBy            *string         `db:"cash_received_by" json:"cash_received_by,omitempty"`
	CashReceivedAt            *time.Time      `db:"cash_received_at" json:"cash_received_at,omitempty"`
	LastPaymentReminder       *string         `db:"last_payment_reminder" json:"last_payment_reminder,omitempty"`

	Status             Status      `db:"status" json:"status"`
	TransportCharge    types.Paise `db:"transport_charge" json:"transport_charge"`
	VehicleNumber      *string     `db:"vehicle_number" json:"vehicle_number,omitempty"`
	DriverName         *string     `db:"driver_name" json:"driver_name,omitempty"`
	TransportAt        *time.Time  `db:"transport_at" json:"transport_dispatched_at,omitempty"`
	DispatchSlipNumber *string     `db:"dispatch_slip_number" json:"dispatch_slip_number,omitempty"`
	DispatchSlipAt     *time.Time  `db:"dispatch_slip_at" json:"dispatch_slip_at,omitempty"`
	DispatchedAt       *time.Time  `db:"dispatched_at" json:"dispatched_at,omitempty"`
	DeliveredAt        *time.Time  `db:"delivered_at" json:"delivered_at,omitempty"`
	CancelledAt        *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason       *string     `db:"cancel_reason" json:"cancel_reason,omitempty"`
	RefundDue          types.Paise `db:"refund_due" json:"refund_due"`
}

// Collected is what the customer has paid so far.
func (o *Order) Collected() types.Paise {
	var paid types.Paise
	if o.AdvancePaymentStatus == AdvancePaid {
		paid += o.AdvanceAmount
	}
	if o.RemainingPaymentStatus == RemainingPaid || o.RemainingPaymentStatus == RemainingCashReceived {
		paid += o.RemainingAmount
	}
	return paid
}

// Outstanding is the amount still to be collected.
func (o *Order) Outstanding() types.Paise {
	return o.TotalPrice - o.Collected()
}

// OwnedBy reports whether the order belongs to the portal user.
func (o *Order) OwnedBy(userID string) bool {
	return userID != "" && o.UserID == userID
}

// Frozen reports whether product and tax fields may no longer change.
func (o *Order) Frozen() bool {
	switch o.Status {
	case StatusDispatched, StatusDelivered, StatusReturned:
		return true
	}
	return false
}

// refreshPaymentStatus derives PaymentStatus from the two stages.
func (o *Order) refreshPaymentStatus() {
	advanceDone := o.AdvancePaymentStatus == AdvancePaid || o.AdvanceAmount == 0
	switch {
	case advanceDone && o.RemainingAmount == 0:
		o.PaymentStatus = PaymentCompleted
	case advanceDone && (o.RemainingPaymentStatus == RemainingPaid || o.RemainingPaymentStatus == RemainingCashReceived):
		o.PaymentStatus = PaymentCompleted
	case o.Collected() > 0:
		o.PaymentStatus = PaymentPartial
	default:
		o.PaymentStatus = PaymentPending
	}
}

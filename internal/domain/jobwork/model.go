// Package jobwork handles labour-only processing of customer-supplied glass.
package jobwork

import (
	"time"

	"glasserp/internal/core/entity"
	"glasserp/internal/core/types"
)

// Status of a job-work order.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAccepted         Status = "accepted"
	StatusMaterialReceived Status = "material_received"
	StatusInProcess        Status = "in_process"
	StatusCompleted        Status = "completed"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// Flow is the job-work state machine; every step is explicit.
var Flow = entity.Transitions[Status]{
	StatusPending:          {StatusAccepted, StatusCancelled},
	StatusAccepted:         {StatusMaterialReceived, StatusCancelled},
	StatusMaterialReceived: {StatusInProcess, StatusCancelled},
	StatusInProcess:        {StatusCompleted, StatusCancelled},
	StatusCompleted:        {StatusReadyForDelivery, StatusCancelled},
	StatusReadyForDelivery: {StatusDelivered, StatusCancelled},
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	if _, ok := Flow[st]; ok || st == StatusDelivered || st == StatusCancelled {
		return st, true
	}
	return "", false
}

// PaymentStatus of a job-work order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// HistoryEntry records one status move.
type HistoryEntry struct {
	From Status    `json:"from,omitempty"`
	To   Status    `json:"to"`
	At   time.Time `json:"at"`
	By   string    `json:"by,omitempty"`
	Note string    `json:"note,omitempty"`
}

// Payment is a receipt against the order.
type Payment struct {
	Sequence   int         `json:"sequence"`
	Amount     types.Paise `json:"amount"`
	Method     string      `json:"method"`
	ReceivedAt time.Time   `json:"received_at"`
	RecordedBy string      `json:"recorded_by,omitempty"`
}

// Order is a job-work order.
type Order struct {
	entity.Document

	JobWorkNumber      string         `db:"job_work_number" json:"job_work_number"`
	CustomerName       string         `db:"customer_name" json:"customer_name"`
	Phone              string         `db:"phone" json:"phone"`
	Items              []Item         `db:"items" json:"items"`
	Summary            Summary        `db:"summary" json:"summary"`
	AdvancePercent     int            `db:"advance_percent" json:"advance_percent"`
	AdvanceRequired    types.Paise    `db:"advance_required" json:"advance_required"`
	AdvancePaid        types.Paise    `db:"advance_paid" json:"advance_paid"`
	AmountPaid         types.Paise    `db:"amount_paid" json:"amount_paid"`
	PaymentStatus      PaymentStatus  `db:"payment_status" json:"payment_status"`
	Payments           []Payment      `db:"payments" json:"payments"`
	Status             Status         `db:"status" json:"status"`
	StatusHistory      []HistoryEntry `db:"status_history" json:"status_history"`
	DisclaimerAccepted bool           `db:"disclaimer_accepted" json:"disclaimer_accepted"`
	BreakageCount      int            `db:"breakage_count" json:"breakage_count"`
	DeliverySlipNumber *string        `db:"delivery_slip_number" json:"delivery_slip_number,omitempty"`
	DeliveredAt        *time.Time     `db:"delivered_at" json:"delivered_at,omitempty"`
	Notes              string         `db:"notes" json:"notes,omitempty"`
}

// Outstanding is the unpaid part of the grand total.
func (o *Order) Outstanding() types.Paise {
	return o.Summary.GrandTotal - o.AmountPaid
}

// Settled reports whether the whole amount is paid.
func (o *Order) Settled() bool {
	return o.AmountPaid >= o.Summary.GrandTotal
}

func (o *Order) refreshPaymentStatus() {
	switch {
	case o.Settled():
		o.PaymentStatus = PaymentPaid
	case o.AmountPaid > 0:
		o.PaymentStatus = PaymentPartial
	default:
		o.PaymentStatus = PaymentPending
	}
}

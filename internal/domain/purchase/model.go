// Package purchase runs purchase orders from draft to receipt and tracks what
// is still owed on them.
package purchase

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Status of a purchase order.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusReceived        Status = "received"
	StatusCancelled       Status = "cancelled"
)

// Flow is the PO state machine.
var Flow = entity.Transitions[Status]{
	StatusDraft:           {StatusPendingApproval, StatusCancelled},
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusReceived, StatusCancelled},
}

// ParseStatus validates s.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusReceived, StatusCancelled:
		return st, true
	}
	return "", false
}

// PaymentStatus tracks how much of the grand total is paid.
type PaymentStatus string

const (
	Unpaid        PaymentStatus = "unpaid"
	PartiallyPaid PaymentStatus = "partially_paid"
	FullyPaid     PaymentStatus = "fully_paid"
)

// Item is one PO line. MaterialID links the line to stock; lines without it
// (services, freight) are not received into inventory.
type Item struct {
	Name       string         `json:"name"`
	MaterialID *id.ID         `json:"material_id,omitempty"`
	Quantity   types.Quantity `json:"quantity"`
	Unit       string         `json:"unit,omitempty"`
	UnitPrice  types.Paise    `json:"unit_price"`
	GSTRate    float64        `json:"gst_rate"`
	Amount     types.Paise    `json:"amount"`
	GSTAmount  types.Paise    `json:"gst_amount"`
	Total      types.Paise    `json:"total"`
}

// PurchaseOrder is an order placed with a vendor.
type PurchaseOrder struct {
	entity.Document

	PONumber           string        `db:"po_number" json:"po_number"`
	VendorID           id.ID         `db:"vendor_id" json:"vendor_id"`
	VendorName         string        `db:"vendor_name" json:"vendor_name"`
	VendorCreditDays   int           `db:"vendor_credit_days" json:"vendor_credit_days"`
	Items              []Item        `db:"items" json:"items"`
	Subtotal           types.Paise   `db:"subtotal" json:"subtotal"`
	TotalGST           types.Paise   `db:"total_gst" json:"total_gst"`
	GrandTotal         types.Paise   `db:"grand_total" json:"grand_total"`
	Status             Status        `db:"status" json:"status"`
	PaymentStatus      PaymentStatus `db:"payment_status" json:"payment_status"`
	AmountPaid         types.Paise   `db:"amount_paid" json:"amount_paid"`
	OutstandingBalance types.Paise   `db:"outstanding_balance" json:"outstanding_balance"`
	ExpectedDate       *time.Time    `db:"expected_date" json:"expected_date,omitempty"`
	SubmittedAt        *time.Time    `db:"submitted_at" json:"submitted_at,omitempty"`
	ApprovedAt         *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	ApprovedBy         *string       `db:"approved_by" json:"approved_by,omitempty"`
	RejectedAt         *time.Time    `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason    string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReceivedAt         *time.Time    `db:"received_at" json:"received_at,omitempty"`
	CancelledAt        *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	DueDate            *time.Time    `db:"due_date" json:"due_date,omitempty"`
	LastReminder       *string       `db:"last_reminder" json:"-"`
	Notes              string        `db:"notes" json:"notes,omitempty"`
}

// Price fills line amounts and order totals. GST is rounded per line.
func (po *PurchaseOrder) Price() error {
	if len(po.Items) == 0 {
		return apperror.NewFieldValidation("items", "at least one item is required")
	}
	po.Subtotal, po.TotalGST = 0, 0
	for i := range po.Items {
		it := &po.Items[i]
		field := fmt.Sprintf("items[%d]", i)
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return apperror.NewFieldValidation(field+".name", "item name is required")
		}
		if !it.Quantity.IsPositive() {
			return apperror.NewFieldValidation(field+".quantity", "quantity must be positive")
		}
		if it.UnitPrice.IsNegative() {
			return apperror.NewFieldValidation(field+".unit_price", "unit_price cannot be negative")
		}
		if it.GSTRate < 0 || it.GSTRate > 28 {
			return apperror.NewFieldValidation(field+".gst_rate", "gst_rate must be between 0 and 28")
		}
		qty := decimal.New(int64(it.Quantity), -4)
		it.Amount = types.PaiseFromDecimal(it.UnitPrice.Rupees().Mul(qty))
		it.GSTAmount = it.Amount.MulRate(decimal.NewFromFloat(it.GSTRate))
		it.Total = it.Amount + it.GSTAmount
		po.Subtotal += it.Amount
		po.TotalGST += it.GSTAmount
	}
	po.GrandTotal = po.Subtotal + po.TotalGST
	if !po.GrandTotal.IsPositive() {
		return apperror.NewFieldValidation("items", "grand total must be positive")
	}
	po.OutstandingBalance = po.GrandTotal - po.AmountPaid
	return nil
}

// Payable reports whether money may be paid against the PO.
func (po *PurchaseOrder) Payable() bool {
	return (po.Status == StatusApproved || po.Status == StatusReceived) && po.OutstandingBalance > 0
}

// ApplyPayment books amount against the PO, keeping amount_paid +
// outstanding_balance = grand_total.
func (po *PurchaseOrder) ApplyPayment(amount types.Paise) error {
	if !po.Payable() {
		return apperror.NewConflict(fmt.Sprintf("PO %s is %s with ₹%s outstanding; it cannot take payments",
			po.PONumber, po.Status, po.OutstandingBalance))
	}
	if !amount.IsPositive() || amount > po.OutstandingBalance {
		return apperror.NewFieldValidation("amount",
			fmt.Sprintf("amount must be between ₹0.01 and the outstanding ₹%s", po.OutstandingBalance))
	}
	po.AmountPaid += amount
	po.OutstandingBalance = po.GrandTotal - po.AmountPaid
	po.refreshPaymentStatus()
	return nil
}

func (po *PurchaseOrder) refreshPaymentStatus() {
	switch {
	case po.OutstandingBalance <= 0:
		po.PaymentStatus = FullyPaid
	case po.AmountPaid > 0:
		po.PaymentStatus = PartiallyPaid
	default:
		po.PaymentStatus = Unpaid
	}
}

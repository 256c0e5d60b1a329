// Package invoice issues GST sales invoices and records payments against them.
package invoice

import (
	"time"

	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/tax"
)

// PaymentStatus of an invoice.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// DefaultCreditDays applies when the invoice has no customer profile.
const DefaultCreditDays = 7

// Item is one invoice line.
type Item struct {
	Description string      `json:"description"`
	HSNCode     string      `json:"hsn_code,omitempty"`
	Quantity    float64     `json:"quantity"`
	Unit        string      `json:"unit"`
	Rate        types.Paise `json:"rate"`
	Amount      types.Paise `json:"amount"`
	CGST        types.Paise `json:"cgst_amount"`
	SGST        types.Paise `json:"sgst_amount"`
	IGST        types.Paise `json:"igst_amount"`
	GSTRate     float64     `json:"gst_rate"`
}

// Payment is one receipt against the invoice.
type Payment struct {
	Sequence   int         `json:"sequence"`
	Amount     types.Paise `json:"amount"`
	Method     string      `json:"method"`
	Reference  string      `json:"reference,omitempty"`
	ReceivedAt time.Time   `json:"received_at"`
	RecordedBy string      `json:"recorded_by,omitempty"`
}

// Invoice is a GST tax invoice.
type Invoice struct {
	entity.Document

	InvoiceNumber  string      `db:"invoice_number" json:"invoice_number"`
	OrderID        *id.ID      `db:"order_id" json:"order_id,omitempty"`
	OrderNumber    *string     `db:"order_number" json:"order_number,omitempty"`
	CustomerID     *id.ID      `db:"customer_id" json:"customer_id,omitempty"`
	CustomerName   string      `db:"customer_name" json:"customer_name"`
	CustomerGSTIN  *string     `db:"customer_gstin" json:"customer_gstin,omitempty"`
	CustomerPhone  string      `db:"customer_phone" json:"customer_phone,omitempty"`
	BillingAddress string      `db:"billing_address" json:"billing_address,omitempty"`
	StateCode      string      `db:"state_code" json:"state_code"`
	GSTType        tax.GSTType `db:"gst_type" json:"gst_type"`
	InvoiceDate    time.Time   `db:"invoice_date" json:"invoice_date"`
	DueDate        time.Time   `db:"due_date" json:"due_date"`

	Items    []Item      `db:"items" json:"items"`
	Subtotal types.Paise `db:"subtotal" json:"subtotal"`
	CGST     types.Paise `db:"cgst" json:"cgst"`
	SGST     types.Paise `db:"sgst" json:"sgst"`
	IGST     types.Paise `db:"igst" json:"igst"`
	TotalTax types.Paise `db:"total_tax" json:"total_tax"`
	Total    types.Paise `db:"total" json:"total"`

	AmountPaid    types.Paise   `db:"amount_paid" json:"amount_paid"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"payment_status"`
	Payments      []Payment     `db:"payments" json:"payments"`
	Notes         string        `db:"notes" json:"notes,omitempty"`
}

// Outstanding is the unpaid part of the invoice.
func (inv *Invoice) Outstanding() types.Paise {
	return inv.Total - inv.AmountPaid
}

// sum recomputes totals from the items.
func (inv *Invoice) sum() {
	inv.Subtotal, inv.CGST, inv.SGST, inv.IGST = 0, 0, 0, 0
	for _, it := range inv.Items {
		inv.Subtotal += it.Amount
		inv.CGST += it.CGST
		inv.SGST += it.SGST
		inv.IGST += it.IGST
	}
	inv.TotalTax = inv.CGST + inv.SGST + inv.IGST
	inv.Total = inv.Subtotal + inv.TotalTax
}

func (inv *Invoice) refreshStatus() {
	switch {
	case inv.AmountPaid >= inv.Total:
		inv.PaymentStatus = PaymentPaid
	case inv.AmountPaid > 0:
		inv.PaymentStatus = PaymentPartial
	default:
		inv.PaymentStatus = PaymentPending
	}
}

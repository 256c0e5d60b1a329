// Package vendorpay pays vendors against approved purchase orders, one PO at
// a time or in bulk, through the payouts API or recorded manually.
package vendorpay

import (
	"strings"
	"time"

	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Type is the share of the PO being paid.
type Type string

const (
	TypeAdvance Type = "advance"
	TypePartial Type = "partial"
	TypeFull    Type = "full"
)

// ParseType validates s.
func ParseType(s string) (Type, bool) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeAdvance, TypePartial, TypeFull:
		return t, true
	}
	return "", false
}

// Mode is how the money moves. ModePayout goes through the payouts API;
// the rest are settled outside and completed with a transaction reference.
type Mode string

const (
	ModePayout       Mode = "razorpay"
	ModeBankTransfer Mode = "bank_transfer"
	ModeUPI          Mode = "upi"
	ModeCheque       Mode = "cheque"
	ModeCash         Mode = "cash"
)

// ParseMode validates s.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePayout, ModeBankTransfer, ModeUPI, ModeCheque, ModeCash:
		return m, true
	}
	return "", false
}

// Manual reports whether the mode is completed by hand.
func (m Mode) Manual() bool { return m != ModePayout }

// Status of a vendor payment.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Open reports whether the payment still holds part of the PO outstanding.
func (s Status) Open() bool {
	return s == StatusInitiated || s == StatusProcessing
}

// Payment is money paid to a vendor against one PO.
type Payment struct {
	entity.Document

	POID           id.ID       `db:"po_id" json:"po_id"`
	PONumber       string      `db:"po_number" json:"po_number"`
	VendorID       id.ID       `db:"vendor_id" json:"vendor_id"`
	VendorName     string      `db:"vendor_name" json:"vendor_name"`
	Amount         types.Paise `db:"amount" json:"amount"`
	PaymentType    Type        `db:"payment_type" json:"payment_type"`
	PaymentMode    Mode        `db:"payment_mode" json:"payment_mode"`
	Status         Status      `db:"status" json:"status"`
	PayoutID       *string     `db:"payout_id" json:"payout_id,omitempty"`
	PayoutStatus   *string     `db:"payout_status" json:"payout_status,omitempty"`
	UTR            *string     `db:"utr" json:"utr,omitempty"`
	ReceiptNumber  *string     `db:"receipt_number" json:"receipt_number,omitempty"`
	MockMode       bool        `db:"mock_mode" json:"mock_mode"`
	TransactionRef *string     `db:"transaction_ref" json:"transaction_ref,omitempty"`
	BulkPaymentID  *id.ID      `db:"bulk_payment_id" json:"bulk_payment_id,omitempty"`
	FailureReason  string      `db:"failure_reason" json:"failure_reason,omitempty"`
	Notes          string      `db:"notes" json:"notes,omitempty"`
	CompletedAt    *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
}

// Bulk is one settlement covering several POs of a vendor.
type Bulk struct {
	entity.Document

	BulkReceiptNumber *string     `db:"bulk_receipt_number" json:"bulk_receipt_number,omitempty"`
	VendorID          id.ID       `db:"vendor_id" json:"vendor_id"`
	VendorName        string      `db:"vendor_name" json:"vendor_name"`
	POIDs             []id.ID     `db:"po_ids" json:"po_ids"`
	PaymentIDs        []id.ID     `db:"payment_ids" json:"payment_ids"`
	TotalAmount       types.Paise `db:"total_amount" json:"total_amount"`
	PaymentMode       Mode        `db:"payment_mode" json:"payment_mode"`
	Status            Status      `db:"status" json:"status"`
	TransactionRef    *string     `db:"transaction_ref" json:"transaction_ref,omitempty"`
	Notes             string      `db:"notes" json:"notes,omitempty"`
	CompletedAt       *time.Time  `db:"completed_at" json:"completed_at,omitempty"`
}

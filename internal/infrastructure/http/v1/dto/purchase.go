package dto

import (
	"time"

	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/purchase"
	"glasserp/internal/domain/vendorpay"
)

// POItemRequest is one purchase line.
type POItemRequest struct {
	Name       string         `json:"name" binding:"required,max=200"`
	MaterialID *id.ID         `json:"material_id"`
	Quantity   types.Quantity `json:"quantity" binding:"required,gt=0"`
	Unit       string         `json:"unit" binding:"omitempty,max=20"`
	UnitPrice  types.Paise    `json:"unit_price" binding:"required,gt=0"`
	GSTRate    float64        `json:"gst_rate" binding:"omitempty,min=0,max=28"`
}

// CreatePORequest drafts a purchase order.
type CreatePORequest struct {
	VendorID     id.ID           `json:"vendor_id" binding:"required"`
	Items        []POItemRequest `json:"items" binding:"required,min=1,dive"`
	ExpectedDate string          `json:"expected_delivery_date" binding:"omitempty,datetime=2006-01-02"`
	Notes        string          `json:"notes" binding:"omitempty,max=1000"`
}

// ToInput converts to the service input.
func (r *CreatePORequest) ToInput() purchase.CreateInput {
	items := make([]purchase.Item, len(r.Items))
	for i, it := range r.Items {
		items[i] = purchase.Item{
			Name:       it.Name,
			MaterialID: it.MaterialID,
			Quantity:   it.Quantity,
			Unit:       it.Unit,
			UnitPrice:  it.UnitPrice,
			GSTRate:    it.GSTRate,
		}
	}
	in := purchase.CreateInput{VendorID: r.VendorID, Items: items, Notes: r.Notes}
	if r.ExpectedDate != "" {
		if d, err := time.Parse(time.DateOnly, r.ExpectedDate); err == nil {
			in.ExpectedDate = &d
		}
	}
	return in
}

// POStatusRequest moves a purchase order to a new status.
type POStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending_approval approved rejected received cancelled"`
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// InitiatePaymentRequest starts a vendor payout against a PO.
type InitiatePaymentRequest struct {
	PaymentType string      `json:"payment_type" binding:"required,oneof=advance partial full"`
	Amount      types.Paise `json:"amount" binding:"omitempty,min=0"`
	Percentage  *float64    `json:"percentage" binding:"omitempty,gt=0,lte=100"`
	PaymentMode string      `json:"payment_mode" binding:"required,oneof=razorpay bank_transfer upi cheque cash"`
	Notes       string      `json:"notes" binding:"omitempty,max=500"`
}

// ToInput converts to the service input for poID.
func (r *InitiatePaymentRequest) ToInput(poID id.ID) vendorpay.InitiateInput {
	return vendorpay.InitiateInput{
		POID:        poID,
		PaymentType: vendorpay.Type(r.PaymentType),
		Amount:      r.Amount,
		Percentage:  r.Percentage,
		PaymentMode: vendorpay.Mode(r.PaymentMode),
		Notes:       r.Notes,
	}
}

// RecordManualQuery carries the bank reference of an offline payment.
type RecordManualQuery struct {
	TransactionRef string `form:"transaction_ref" binding:"required,max=100"`
}

// BulkPaymentRequest pays several POs of one vendor together.
type BulkPaymentRequest struct {
	VendorID    id.ID   `json:"vendor_id" binding:"required"`
	POIDs       []id.ID `json:"po_ids" binding:"required,min=1,max=100,dive,required"`
	PaymentMode string  `json:"payment_mode" binding:"required,oneof=razorpay bank_transfer upi cheque cash"`
	Notes       string  `json:"notes" binding:"omitempty,max=500"`
}

// ToInput converts to the service input.
func (r *BulkPaymentRequest) ToInput() vendorpay.BulkInput {
	return vendorpay.BulkInput{
		VendorID:    r.VendorID,
		POIDs:       r.POIDs,
		PaymentMode: vendorpay.Mode(r.PaymentMode),
		Notes:       r.Notes,
	}
}

// CompleteBulkRequest closes a bulk payment with its bank reference.
type CompleteBulkRequest struct {
	TransactionRef string `json:"transaction_ref" binding:"required,max=100"`
}

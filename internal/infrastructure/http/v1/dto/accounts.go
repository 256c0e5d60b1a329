package dto

import (
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/invoice"
	"glasserp/internal/domain/tax"
)

// InvoiceItemRequest is one billed line.
type InvoiceItemRequest struct {
	Description string      `json:"description" binding:"required,max=300"`
	HSNCode     string      `json:"hsn_code" binding:"omitempty,hsn"`
	Quantity    float64     `json:"quantity" binding:"required,gt=0"`
	Unit        string      `json:"unit" binding:"omitempty,max=20"`
	Rate        types.Paise `json:"rate" binding:"required,gt=0"`
}

// CreateInvoiceRequest issues a manual tax invoice.
type CreateInvoiceRequest struct {
	CustomerID    *id.ID               `json:"customer_id"`
	CustomerName  string               `json:"customer_name" binding:"required,max=200"`
	CustomerGSTIN *string              `json:"customer_gstin" binding:"omitempty,gstin"`
	CustomerPhone string               `json:"customer_phone" binding:"omitempty,in_mobile"`
	StateCode     string               `json:"state_code" binding:"omitempty,state_code"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes         string               `json:"notes" binding:"omitempty,max=1000"`
}

// ToInput converts to the service input.
func (r *CreateInvoiceRequest) ToInput() invoice.CreateInput {
	items := make([]invoice.ItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = invoice.ItemInput{
			Description: it.Description,
			HSNCode:     it.HSNCode,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Rate:        it.Rate,
		}
	}
	return invoice.CreateInput{
		CustomerID:    r.CustomerID,
		CustomerName:  r.CustomerName,
		CustomerGSTIN: r.CustomerGSTIN,
		CustomerPhone: r.CustomerPhone,
		StateCode:     r.StateCode,
		Items:         items,
		Notes:         r.Notes,
	}
}

// InvoicePaymentRequest records money received against an invoice.
type InvoicePaymentRequest struct {
	Amount    types.Paise `json:"amount" binding:"required,gt=0"`
	Method    string      `json:"payment_method" binding:"omitempty,oneof=cash bank_transfer upi cheque online"`
	Reference string      `json:"reference" binding:"omitempty,max=100"`
}

// GSTCalculateRequest previews the tax on a taxable amount.
type GSTCalculateRequest struct {
	Amount            types.Paise `json:"amount" binding:"required,gt=0"`
	DeliveryStateCode string      `json:"delivery_state_code" binding:"required,state_code"`
	HSNCode           string      `json:"hsn_code" binding:"omitempty,hsn"`
}

// ToInput converts to the engine input.
func (r *GSTCalculateRequest) ToInput() tax.Input {
	return tax.Input{
		Taxable:   r.Amount,
		StateCode: r.DeliveryStateCode,
		HSNCode:   r.HSNCode,
	}
}

// LedgerQuery selects a party statement or general ledger entries.
type LedgerQuery struct {
	PartyID   string `form:"party_id" binding:"omitempty,uuid"`
	PartyType string `form:"party_type" binding:"omitempty,oneof=customer vendor"`
	Account   string `form:"account"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Skip      int    `form:"skip" binding:"omitempty,min=0"`
}

// PartyTypeQuery selects customers or vendors.
type PartyTypeQuery struct {
	PartyType string `form:"party_type" binding:"omitempty,oneof=customer vendor"`
	AsOf      string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// MonthQuery names a calendar month.
type MonthQuery struct {
	Month string `form:"month" binding:"required,datetime=2006-01"`
}

// FinancialYearQuery names a fiscal year such as 2024-25.
type FinancialYearQuery struct {
	FinancialYear string `form:"financial_year" binding:"omitempty,len=7"`
}

// OpeningBalanceRequest sets a party's opening balance. Negative amounts are
// credit balances.
type OpeningBalanceRequest struct {
	OpeningBalance types.Paise `json:"opening_balance"`
}

package dto

import (
	"glasserp/internal/core/entity"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/customer"
	"glasserp/internal/domain/vendor"
)

// AddressRequest is a postal address.
type AddressRequest struct {
	Label     string `json:"label" binding:"omitempty,max=50"`
	Line1     string `json:"line1" binding:"required,max=200"`
	Line2     string `json:"line2" binding:"omitempty,max=200"`
	City      string `json:"city" binding:"required,max=100"`
	StateCode string `json:"state_code" binding:"required,state_code"`
	Pincode   string `json:"pincode" binding:"omitempty,len=6,numeric"`
}

func (a AddressRequest) toDomain() customer.Address {
	return customer.Address{
		Label:     a.Label,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		StateCode: a.StateCode,
		Pincode:   a.Pincode,
	}
}

// CustomerRequest creates or replaces a customer profile. Version is
// required on update for optimistic locking.
type CustomerRequest struct {
	CustomerType      string           `json:"customer_type" binding:"omitempty,oneof=individual proprietorship partnership pvt_ltd ltd llp government other"`
	DisplayName       string           `json:"display_name" binding:"omitempty,max=200"`
	CompanyName       string           `json:"company_name" binding:"omitempty,max=200"`
	ContactPerson     string           `json:"contact_person" binding:"omitempty,max=120"`
	Mobile            string           `json:"mobile" binding:"required,in_mobile"`
	Email             string           `json:"email" binding:"omitempty,email"`
	GSTIN             *string          `json:"gstin" binding:"omitempty,gstin"`
	PAN               *string          `json:"pan" binding:"omitempty,len=10,alphanum"`
	NeedsGSTInvoice   bool             `json:"needs_gst_invoice"`
	BillingAddress    AddressRequest   `json:"billing_address" binding:"required"`
	ShippingAddresses []AddressRequest `json:"shipping_addresses" binding:"omitempty,dive"`
	CreditType        string           `json:"credit_type" binding:"omitempty,oneof=cash_only credit_allowed"`
	CreditLimit       types.Paise      `json:"credit_limit" binding:"omitempty,min=0"`
	CreditDays        int              `json:"credit_days" binding:"omitempty,min=0,max=365"`
	OpeningBalance    types.Paise      `json:"opening_balance"`
	UserID            *string          `json:"user_id"`
	Notes             string           `json:"notes" binding:"omitempty,max=1000"`
	Status            string           `json:"status" binding:"omitempty,oneof=active disabled"`
	Version           int              `json:"version" binding:"omitempty,min=1"`
}

// ToEntity converts to a domain customer.
func (r *CustomerRequest) ToEntity() *customer.Customer {
	c := &customer.Customer{
		CustomerType:    customer.Type(r.CustomerType),
		DisplayName:     r.DisplayName,
		CompanyName:     r.CompanyName,
		ContactPerson:   r.ContactPerson,
		Mobile:          r.Mobile,
		Email:           r.Email,
		GSTIN:           r.GSTIN,
		PAN:             r.PAN,
		NeedsGSTInvoice: r.NeedsGSTInvoice,
		BillingAddress:  r.BillingAddress.toDomain(),
		CreditType:      customer.CreditType(r.CreditType),
		CreditLimit:     r.CreditLimit,
		CreditDays:      r.CreditDays,
		OpeningBalance:  r.OpeningBalance,
		UserID:          r.UserID,
		Notes:           r.Notes,
		Status:          entity.RecordStatus(r.Status),
	}
	c.Version = r.Version
	c.ShippingAddresses = make([]customer.Address, len(r.ShippingAddresses))
	for i, a := range r.ShippingAddresses {
		c.ShippingAddresses[i] = a.toDomain()
	}
	return c
}

// VendorRequest creates or replaces a vendor.
type VendorRequest struct {
	Name           string      `json:"name" binding:"required,max=200"`
	CompanyName    string      `json:"company_name" binding:"omitempty,max=200"`
	ContactPerson  string      `json:"contact_person" binding:"omitempty,max=120"`
	Mobile         string      `json:"mobile" binding:"omitempty,in_mobile"`
	Email          string      `json:"email" binding:"omitempty,email"`
	Address        string      `json:"address" binding:"omitempty,max=500"`
	StateCode      string      `json:"state_code" binding:"omitempty,state_code"`
	GSTNumber      *string     `json:"gst_number" binding:"omitempty,gstin"`
	BankName       *string     `json:"bank_name" binding:"omitempty,max=100"`
	BankAccount    *string     `json:"bank_account" binding:"omitempty,min=6,max=20,numeric"`
	IFSCCode       *string     `json:"ifsc_code" binding:"omitempty,len=11,alphanum"`
	UPIID          *string     `json:"upi_id" binding:"omitempty,max=100,contains=@"`
	Category       string      `json:"category" binding:"omitempty,max=50"`
	CreditDays     int         `json:"credit_days" binding:"omitempty,min=0,max=365"`
	CreditLimit    types.Paise `json:"credit_limit" binding:"omitempty,min=0"`
	OpeningBalance types.Paise `json:"opening_balance"`
	Status         string      `json:"status" binding:"omitempty,oneof=active disabled"`
	Version        int         `json:"version" binding:"omitempty,min=1"`
}

// ToEntity converts to a domain vendor.
func (r *VendorRequest) ToEntity() *vendor.Vendor {
	v := &vendor.Vendor{
		Name:           r.Name,
		CompanyName:    r.CompanyName,
		ContactPerson:  r.ContactPerson,
		Mobile:         r.Mobile,
		Email:          r.Email,
		Address:        r.Address,
		StateCode:      r.StateCode,
		GSTNumber:      r.GSTNumber,
		BankName:       r.BankName,
		BankAccount:    r.BankAccount,
		IFSCCode:       r.IFSCCode,
		UPIID:          r.UPIID,
		Category:       r.Category,
		CreditDays:     r.CreditDays,
		CreditLimit:    r.CreditLimit,
		OpeningBalance: r.OpeningBalance,
		Status:         entity.RecordStatus(r.Status),
	}
	v.Version = r.Version
	return v
}

// BalanceSheetQuery selects the fiscal year of a vendor balance sheet.
type BalanceSheetQuery struct {
	FinancialYear string `form:"financial_year" binding:"omitempty,len=7"`
	Top           int    `form:"top" binding:"omitempty,min=1,max=100"`
}

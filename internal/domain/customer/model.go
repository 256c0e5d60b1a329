// Package customer is the customer master: profiles used by orders,
// invoices and the customer ledger.
package customer

import (
	"context"
	"regexp"
	"strings"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/tax"
	"glasserp/pkg/phone"
)

var (
	panRE   = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// Type is the legal form of the customer.
type Type string

const (
	TypeIndividual  Type = "individual"
	TypeProprietor  Type = "proprietorship"
	TypePartnership Type = "partnership"
	TypePvtLtd      Type = "pvt_ltd"
	TypeLtd         Type = "ltd"
	TypeLLP         Type = "llp"
	TypeGovernment  Type = "government"
	TypeOther       Type = "other"
)

// IsCompany reports whether the type is a registered business.
func (t Type) IsCompany() bool {
	switch t {
	case TypePvtLtd, TypeLtd, TypeLLP, TypePartnership, TypeGovernment:
		return true
	}
	return false
}

func (t Type) valid() bool {
	switch t {
	case TypeIndividual, TypeProprietor, TypePartnership, TypePvtLtd, TypeLtd, TypeLLP, TypeGovernment, TypeOther:
		return true
	}
	return false
}

// InvoiceType is B2B (registered buyer, GST invoice) or B2C.
type InvoiceType string

const (
	InvoiceB2B InvoiceType = "B2B"
	InvoiceB2C InvoiceType = "B2C"
)

// CreditType controls whether orders may be placed on credit.
type CreditType string

const (
	CreditCashOnly CreditType = "cash_only"
	CreditAllowed  CreditType = "credit_allowed"
)

// Address is a postal address. StateCode is the two-digit GST state code.
type Address struct {
	Label     string `json:"label,omitempty"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2,omitempty"`
	City      string `json:"city"`
	StateCode string `json:"state_code"`
	Pincode   string `json:"pincode"`
}

// String renders the address on one line.
func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Line1, a.Line2, a.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if name := tax.StateName(a.StateCode); name != "" {
		parts = append(parts, name)
	}
	if a.Pincode != "" {
		parts = append(parts, a.Pincode)
	}
	return strings.Join(parts, ", ")
}

func (a *Address) validate(field string) error {
	if a.StateCode != "" && !tax.IsStateCode(a.StateCode) {
		return apperror.NewFieldValidation(field+".state_code", "unknown state code "+a.StateCode)
	}
	if a.Pincode != "" && len(a.Pincode) != 6 {
		return apperror.NewFieldValidation(field+".pincode", "pincode must have 6 digits")
	}
	return nil
}

// Customer is a customer profile.
type Customer struct {
	entity.Base

	Code              string              `db:"code" json:"code"`
	CustomerType      Type                `db:"customer_type" json:"customer_type"`
	DisplayName       string              `db:"display_name" json:"display_name"`
	CompanyName       string              `db:"company_name" json:"company_name,omitempty"`
	ContactPerson     string              `db:"contact_person" json:"contact_person,omitempty"`
	Mobile            string              `db:"mobile" json:"mobile"`
	Email             string              `db:"email" json:"email,omitempty"`
	GSTIN             *string             `db:"gstin" json:"gstin,omitempty"`
	PAN               *string             `db:"pan" json:"pan,omitempty"`
	NeedsGSTInvoice   bool                `db:"needs_gst_invoice" json:"needs_gst_invoice"`
	InvoiceType       InvoiceType         `db:"invoice_type" json:"invoice_type"`
	BillingAddress    Address             `db:"billing_address" json:"billing_address"`
	ShippingAddresses []Address           `db:"shipping_addresses" json:"shipping_addresses"`
	CreditType        CreditType          `db:"credit_type" json:"credit_type"`
	CreditLimit       types.Paise         `db:"credit_limit" json:"credit_limit"`
	CreditDays        int                 `db:"credit_days" json:"credit_days"`
	OpeningBalance    types.Paise         `db:"opening_balance" json:"opening_balance"`
	OpeningRevision   int                 `db:"opening_revision" json:"-"`
	UserID            *string             `db:"user_id" json:"user_id,omitempty"`
	Notes             string              `db:"notes" json:"notes,omitempty"`
	Status            entity.RecordStatus `db:"status" json:"status"`
	CreatedBy         string              `db:"created_by" json:"created_by,omitempty"`
}

// Derive fills computed fields: invoice type and normalised identifiers.
func (c *Customer) Derive() {
	c.DisplayName = strings.TrimSpace(c.DisplayName)
	if c.GSTIN != nil {
		g := strings.ToUpper(strings.TrimSpace(*c.GSTIN))
		if g == "" {
			c.GSTIN = nil
		} else {
			c.GSTIN = &g
		}
	}
	if c.PAN != nil {
		p := strings.ToUpper(strings.TrimSpace(*c.PAN))
		if p == "" {
			c.PAN = nil
		} else {
			c.PAN = &p
		}
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.InvoiceType = InvoiceB2C
	if c.NeedsGSTInvoice || c.CustomerType.IsCompany() {
		c.InvoiceType = InvoiceB2B
	}
	if c.CreditType == "" {
		c.CreditType = CreditCashOnly
	}
	if c.ShippingAddresses == nil {
		c.ShippingAddresses = []Address{}
	}
	if c.Status == "" {
		c.Status = entity.StatusActive
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(ctx context.Context) error {
	if c.DisplayName == "" {
		return apperror.NewFieldValidation("display_name", "display_name is required")
	}
	if !c.CustomerType.valid() {
		return apperror.NewFieldValidation("customer_type", "invalid customer_type "+string(c.CustomerType))
	}
	mobile, err := phone.Normalize(c.Mobile)
	if err != nil {
		return apperror.NewFieldValidation("mobile", err.Error())
	}
	c.Mobile = mobile

	if c.Email != "" && !emailRE.MatchString(c.Email) {
		return apperror.NewFieldValidation("email", "invalid email format")
	}
	if c.GSTIN != nil {
		g, err := tax.NormalizeGSTIN(*c.GSTIN)
		if err != nil {
			return err
		}
		c.GSTIN = &g
	}
	if c.PAN != nil && !panRE.MatchString(*c.PAN) {
		return apperror.NewFieldValidation("pan", "PAN must look like ABCDE1234F")
	}
	if c.NeedsGSTInvoice && c.GSTIN == nil {
		return apperror.NewFieldValidation("gstin", "gstin is required for GST invoices")
	}
	switch c.CreditType {
	case CreditCashOnly, CreditAllowed:
	default:
		return apperror.NewFieldValidation("credit_type", "invalid credit_type "+string(c.CreditType))
	}
	if c.CreditLimit < 0 {
		return apperror.NewFieldValidation("credit_limit", "credit_limit cannot be negative")
	}
	if c.CreditDays < 0 || c.CreditDays > 365 {
		return apperror.NewFieldValidation("credit_days", "credit_days must be between 0 and 365")
	}
	if err := c.BillingAddress.validate("billing_address"); err != nil {
		return err
	}
	for i := range c.ShippingAddresses {
		if err := c.ShippingAddresses[i].validate("shipping_addresses"); err != nil {
			return err
		}
	}
	return nil
}

// StateCode is the place of supply: the GSTIN state, else the billing state.
func (c *Customer) StateCode() string {
	if c.GSTIN != nil {
		if s := tax.StateFromGSTIN(*c.GSTIN); s != "" {
			return s
		}
	}
	return c.BillingAddress.StateCode
}

// AllowsCredit reports whether credit orders may be placed for this customer.
func (c *Customer) AllowsCredit() bool {
	return c.CreditType == CreditAllowed
}

// EffectiveCreditDays returns the days until an invoice falls due.
func (c *Customer) EffectiveCreditDays() int {
	if c.CreditDays > 0 {
		return c.CreditDays
	}
	if c.AllowsCredit() {
		return 30
	}
	return 7
}

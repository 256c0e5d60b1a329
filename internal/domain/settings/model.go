// Package settings holds process-wide business settings: advance rules, GST,
// job-work pricing, wallet and transport parameters. Each type is stored as
// one document stamped with its last editor.
package settings

import (
	"encoding/json"
	"fmt"
	"time"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
)

// Type names a settings document.
type Type string

const (
	TypeAdvancePayment Type = "advance_payment"
	TypeGST            Type = "gst"
	TypeJobWorkPricing Type = "job_work_pricing"
	TypeWallet         Type = "wallet"
	TypeTransport      Type = "transport"
)

// Types lists every recognised settings type.
var Types = []Type{TypeAdvancePayment, TypeGST, TypeJobWorkPricing, TypeWallet, TypeTransport}

// ParseType validates a settings type name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", apperror.NewNotFound("settings", s)
}

// Document is the stored form of one settings type.
type Document struct {
	Type      Type            `db:"type" json:"type"`
	Data      json.RawMessage `db:"data" json:"data"`
	UpdatedBy string          `db:"updated_by" json:"updated_by"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// AdvancePayment configures the minimum advance per order total.
type AdvancePayment struct {
	NoAdvanceUpto              types.Paise `json:"no_advance_upto"`
	MinAdvancePercentUpto5000  int         `json:"min_advance_percent_upto_5000"`
	MinAdvancePercentAbove5000 int         `json:"min_advance_percent_above_5000"`
	CreditEnabled              bool        `json:"credit_enabled"`
}

// Validate checks percentages and thresholds.
func (a *AdvancePayment) Validate() error {
	if a.NoAdvanceUpto.IsNegative() {
		return apperror.NewFieldValidation("no_advance_upto", "no_advance_upto must not be negative")
	}
	for field, p := range map[string]int{
		"min_advance_percent_upto_5000":  a.MinAdvancePercentUpto5000,
		"min_advance_percent_above_5000": a.MinAdvancePercentAbove5000,
	} {
		if p < 0 || p > 100 {
			return apperror.NewFieldValidation(field, field+" must be between 0 and 100")
		}
	}
	return nil
}

// HSNCode maps an HSN code to its GST rate.
type HSNCode struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	GSTRate     float64 `json:"gst_rate"`
}

// GST configures the tax engine and invoice numbering.
type GST struct {
	CompanyStateCode string    `json:"company_state_code"`
	DefaultGSTRate   float64   `json:"default_gst_rate"`
	InvoicePrefix    string    `json:"invoice_prefix"`
	HSNCodes         []HSNCode `json:"hsn_codes"`
}

// Validate checks the company state and rates.
func (g *GST) Validate() error {
	if len(g.CompanyStateCode) != 2 {
		return apperror.NewFieldValidation("company_state_code", "company_state_code must be a two-digit state code")
	}
	if g.DefaultGSTRate < 0 || g.DefaultGSTRate > 100 {
		return apperror.NewFieldValidation("default_gst_rate", "default_gst_rate must be between 0 and 100")
	}
	seen := make(map[string]struct{}, len(g.HSNCodes))
	for _, h := range g.HSNCodes {
		if h.Code == "" {
			return apperror.NewFieldValidation("hsn_codes", "hsn code is required")
		}
		if h.GSTRate < 0 || h.GSTRate > 100 {
			return apperror.NewFieldValidation("hsn_codes", fmt.Sprintf("gst_rate of %s must be between 0 and 100", h.Code))
		}
		if _, dup := seen[h.Code]; dup {
			return apperror.NewFieldValidation("hsn_codes", "duplicate hsn code "+h.Code)
		}
		seen[h.Code] = struct{}{}
	}
	return nil
}

// HSN returns the entry for code.
func (g GST) HSN(code string) (HSNCode, bool) {
	for _, h := range g.HSNCodes {
		if h.Code == code {
			return h, true
		}
	}
	return HSNCode{}, false
}

// JobWorkPricing holds labour rates per glass thickness (mm, as a string key).
type JobWorkPricing struct {
	LabourRates map[string]types.Paise `json:"labour_rates"`
	GSTRate     float64                `json:"gst_rate"`
}

// Validate checks rates.
func (j *JobWorkPricing) Validate() error {
	if len(j.LabourRates) == 0 {
		return apperror.NewFieldValidation("labour_rates", "at least one labour rate is required")
	}
	for k, v := range j.LabourRates {
		if !v.IsPositive() {
			return apperror.NewFieldValidation("labour_rates", "labour rate for "+k+"mm must be positive")
		}
	}
	if j.GSTRate < 0 || j.GSTRate > 100 {
		return apperror.NewFieldValidation("gst_rate", "gst_rate must be between 0 and 100")
	}
	return nil
}

// Wallet holds referral and cashback parameters.
type Wallet struct {
	Enabled             bool        `json:"enabled"`
	ReferralBonus       types.Paise `json:"referral_bonus"`
	RefereeBonus        types.Paise `json:"referee_bonus"`
	CashbackPercent     float64     `json:"cashback_percent"`
	MaxCashbackPerOrder types.Paise `json:"max_cashback_per_order"`
	MinOrderForCashback types.Paise `json:"min_order_for_cashback"`
}

// Validate checks the cashback percentage.
func (w *Wallet) Validate() error {
	if w.CashbackPercent < 0 || w.CashbackPercent > 100 {
		return apperror.NewFieldValidation("cashback_percent", "cashback_percent must be between 0 and 100")
	}
	return nil
}

// Location is a latitude/longitude pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Transport holds delivery cost parameters.
type Transport struct {
	BaseCharge      types.Paise `json:"base_charge"`
	BaseKM          float64     `json:"base_km"`
	PerKMRate       types.Paise `json:"per_km_rate"`
	PerSqftRate     types.Paise `json:"per_sqft_rate"`
	GSTPercent      float64     `json:"gst_percent"`
	FactoryLocation Location    `json:"factory_location"`
}

// Validate checks distances and rates.
func (t *Transport) Validate() error {
	if t.BaseKM < 0 {
		return apperror.NewFieldValidation("base_km", "base_km must not be negative")
	}
	if t.BaseCharge.IsNegative() || t.PerKMRate.IsNegative() || t.PerSqftRate.IsNegative() {
		return apperror.NewValidation("transport charges must not be negative")
	}
	if t.GSTPercent < 0 || t.GSTPercent > 100 {
		return apperror.NewFieldValidation("gst_percent", "gst_percent must be between 0 and 100")
	}
	return nil
}

// Package tax computes Indian GST breakdowns. Same-state supplies are split
// into CGST and SGST at half the rate each; cross-state supplies carry IGST.
package tax

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

// GSTType distinguishes intra-state from inter-state supply.
type GSTType string

const (
	IntraState GSTType = "intra_state"
	InterState GSTType = "inter_state"
)

// Breakdown is the tax on one taxable amount. Each leg is rounded once to
// the paisa; TotalGST is the sum of the rounded legs.
type Breakdown struct {
	GSTType       GSTType     `json:"gst_type"`
	HSNCode       string      `json:"hsn_code,omitempty"`
	Rate          float64     `json:"gst_rate"`
	CGSTRate      float64     `json:"cgst_rate"`
	CGSTAmount    types.Paise `json:"cgst_amount"`
	SGSTRate      float64     `json:"sgst_rate"`
	SGSTAmount    types.Paise `json:"sgst_amount"`
	IGSTRate      float64     `json:"igst_rate"`
	IGSTAmount    types.Paise `json:"igst_amount"`
	TotalGST      types.Paise `json:"total_gst"`
	TaxableAmount types.Paise `json:"taxable_amount"`
	TotalAmount   types.Paise `json:"total_amount"`
}

// Input is one tax question.
type Input struct {
	Taxable   types.Paise
	StateCode string
	// HSNCode is optional; empty uses the default rate.
	HSNCode string
}

// Compute applies cfg to in. It never falls back to zero tax: an unknown
// state or HSN code is a validation error.
func Compute(cfg settings.GST, in Input) (Breakdown, error) {
	if in.Taxable.IsNegative() {
		return Breakdown{}, apperror.NewFieldValidation("amount", "taxable amount must not be negative")
	}
	state := strings.TrimSpace(in.StateCode)
	if state == "" {
		return Breakdown{}, apperror.NewFieldValidation("delivery_state_code", "delivery state code is required")
	}
	if !IsStateCode(state) {
		return Breakdown{}, apperror.NewFieldValidation("delivery_state_code", "unknown state code "+state)
	}

	rate, hsn, err := resolveRate(cfg, in.HSNCode)
	if err != nil {
		return Breakdown{}, err
	}

	b := Breakdown{
		HSNCode:       hsn,
		Rate:          rate,
		TaxableAmount: in.Taxable,
	}
	r := decimal.NewFromFloat(rate)

	if state == cfg.CompanyStateCode {
		half := r.Div(decimal.NewFromInt(2))
		b.GSTType = IntraState
		b.CGSTRate, _ = half.Float64()
		b.SGSTRate = b.CGSTRate
		b.CGSTAmount = in.Taxable.MulRate(half)
		b.SGSTAmount = b.CGSTAmount
	} else {
		b.GSTType = InterState
		b.IGSTRate = rate
		b.IGSTAmount = in.Taxable.MulRate(r)
	}

	b.TotalGST = b.CGSTAmount + b.SGSTAmount + b.IGSTAmount
	b.TotalAmount = in.Taxable + b.TotalGST
	return b, nil
}

func resolveRate(cfg settings.GST, code string) (float64, string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return cfg.DefaultGSTRate, "", nil
	}
	if !IsHSNFormat(code) {
		return 0, "", apperror.NewFieldValidation("hsn_code", "HSN code must have 4, 6 or 8 digits")
	}
	if h, ok := cfg.HSN(code); ok {
		return h.GSTRate, code, nil
	}
	// A longer code inherits the rate of its 4-digit heading.
	if h, ok := cfg.HSN(code[:4]); ok {
		return h.GSTRate, code, nil
	}
	return 0, "", apperror.NewFieldValidation("hsn_code", fmt.Sprintf("unknown HSN code %s", code))
}

// Settings provides the current GST configuration.
type Settings interface {
	GST(ctx context.Context) (settings.GST, error)
}

// Engine computes breakdowns against the stored GST settings.
type Engine struct {
	settings Settings
}

// NewEngine creates a tax engine.
func NewEngine(s Settings) *Engine {
	return &Engine{settings: s}
}

// Calculate computes the breakdown for in.
func (e *Engine) Calculate(ctx context.Context, in Input) (Breakdown, error) {
	cfg, err := e.settings.GST(ctx)
	if err != nil {
		return Breakdown{}, err
	}
	return Compute(cfg, in)
}

// HSNCodes lists the configured HSN codes.
func (e *Engine) HSNCodes(ctx context.Context) ([]settings.HSNCode, error) {
	cfg, err := e.settings.GST(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.HSNCodes, nil
}

// Package product holds the glass catalogue and its per-thickness pricing.
package product

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/tax"
)

// Product is a sellable glass type.
type Product struct {
	entity.Catalog

	Category         string `db:"category" json:"category"`
	Description      string `db:"description" json:"description,omitempty"`
	ThicknessOptions []int  `db:"thickness_options" json:"thickness_options"`
	HSNCode          string `db:"hsn_code" json:"hsn_code"`
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}
	if p.Category == "" {
		return apperror.NewFieldValidation("category", "category is required")
	}
	if len(p.ThicknessOptions) == 0 {
		return apperror.NewFieldValidation("thickness_options", "at least one thickness is required")
	}
	for _, t := range p.ThicknessOptions {
		if t <= 0 || t > 50 {
			return apperror.NewFieldValidation("thickness_options", fmt.Sprintf("thickness %d mm is out of range", t))
		}
	}
	if p.HSNCode != "" && !tax.IsHSNFormat(p.HSNCode) {
		return apperror.NewFieldValidation("hsn_code", "hsn_code must have 4, 6 or 8 digits")
	}
	return nil
}

// Offers reports whether the product is sold in the given thickness.
func (p *Product) Offers(thickness int) bool {
	return slices.Contains(p.ThicknessOptions, thickness)
}

// PricingRule is the rate of one product thickness. The bulk discount applies
// when the ordered area reaches BulkMinSqft (0 means always).
type PricingRule struct {
	ID                  id.ID       `db:"id" json:"id"`
	ProductID           id.ID       `db:"product_id" json:"product_id"`
	Thickness           int         `db:"thickness" json:"thickness"`
	BasePricePerSqft    types.Paise `db:"base_price_per_sqft" json:"base_price_per_sqft"`
	BulkDiscountPercent float64     `db:"bulk_discount_percent" json:"bulk_discount_percent"`
	BulkMinSqft         float64     `db:"bulk_min_sqft" json:"bulk_min_sqft"`
	UpdatedBy           string      `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

// Validate checks the rule.
func (r *PricingRule) Validate() error {
	if r.Thickness <= 0 {
		return apperror.NewFieldValidation("thickness", "thickness must be positive")
	}
	if r.BasePricePerSqft <= 0 {
		return apperror.NewFieldValidation("base_price_per_sqft", "base_price_per_sqft must be positive")
	}
	if r.BulkDiscountPercent < 0 || r.BulkDiscountPercent >= 100 {
		return apperror.NewFieldValidation("bulk_discount_percent", "bulk_discount_percent must be in [0, 100)")
	}
	if r.BulkMinSqft < 0 {
		return apperror.NewFieldValidation("bulk_min_sqft", "bulk_min_sqft cannot be negative")
	}
	return nil
}

var sqInchesPerSqft = decimal.NewFromInt(144)

// AreaSqft returns the area of one pane given in inches.
func AreaSqft(widthInch, heightInch float64) decimal.Decimal {
	return decimal.NewFromFloat(widthInch).Mul(decimal.NewFromFloat(heightInch)).Div(sqInchesPerSqft)
}

// Quote is the priced line of an order.
type Quote struct {
	AreaSqft        float64     `json:"area_sqft"`
	TotalSqft       float64     `json:"total_sqft"`
	UnitRate        types.Paise `json:"unit_rate"`
	DiscountPercent float64     `json:"discount_percent"`
	Gross           types.Paise `json:"gross_amount"`
	Discount        types.Paise `json:"discount_amount"`
	BaseAmount      types.Paise `json:"base_amount"`
}

// Price computes area × quantity × rate less the bulk discount, rounding to the
// paisa once on the gross and once on the discount.
func (r *PricingRule) Price(widthInch, heightInch float64, quantity int) Quote {
	area := AreaSqft(widthInch, heightInch)
	total := area.Mul(decimal.NewFromInt(int64(quantity)))

	q := Quote{
		AreaSqft:  area.Round(2).InexactFloat64(),
		TotalSqft: total.Round(2).InexactFloat64(),
		UnitRate:  r.BasePricePerSqft,
		Gross:     types.PaiseFromDecimal(total.Mul(r.BasePricePerSqft.Rupees())),
	}
	if r.BulkDiscountPercent > 0 && total.GreaterThanOrEqual(decimal.NewFromFloat(r.BulkMinSqft)) {
		q.DiscountPercent = r.BulkDiscountPercent
		q.Discount = q.Gross.MulRate(decimal.NewFromFloat(r.BulkDiscountPercent))
	}
	q.BaseAmount = q.Gross - q.Discount
	return q
}

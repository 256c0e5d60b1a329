package product

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/types"
)

func TestPricingRule_Price(t *testing.T) {
	tests := []struct {
		name     string
		rule     PricingRule
		w, h     float64
		qty      int
		area     float64
		gross    types.Paise
		discount types.Paise
		base     types.Paise
	}{
		{
			name:  "no discount",
			rule:  PricingRule{Thickness: 6, BasePricePerSqft: 12_000},
			w:     24, h: 36, qty: 2,
			area:  6,
			gross: 144_000, base: 144_000,
		},
		{
			name:     "bulk threshold reached",
			rule:     PricingRule{Thickness: 8, BasePricePerSqft: 15_000, BulkDiscountPercent: 10, BulkMinSqft: 100},
			w:        60, h: 48, qty: 6,
			area:     20,
			gross:    1_800_000, discount: 180_000, base: 1_620_000,
		},
		{
			name:  "below bulk threshold",
			rule:  PricingRule{Thickness: 8, BasePricePerSqft: 15_000, BulkDiscountPercent: 10, BulkMinSqft: 100},
			w:     30, h: 40, qty: 1,
			area:  8.33,
			gross: 125_000, base: 125_000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.rule.Price(tt.w, tt.h, tt.qty)
			assert.Equal(t, tt.area, q.AreaSqft)
			assert.Equal(t, tt.gross, q.Gross)
			assert.Equal(t, tt.discount, q.Discount)
			assert.Equal(t, tt.base, q.BaseAmount)
		})
	}
}

func TestProduct_Validate(t *testing.T) {
	p := &Product{Catalog: entity.NewCatalog("Toughened"), Category: "toughened", ThicknessOptions: []int{5, 8}, HSNCode: "7007"}
	assert.NoError(t, p.Validate(context.Background()))
	assert.True(t, p.Offers(8))
	assert.False(t, p.Offers(6))

	p.HSNCode = "70"
	assert.True(t, apperror.IsCode(p.Validate(context.Background()), apperror.CodeValidation))

	p.HSNCode = ""
	p.ThicknessOptions = nil
	assert.Error(t, p.Validate(context.Background()))
}

func TestPricingRule_Validate(t *testing.T) {
	assert.Error(t, (&PricingRule{Thickness: 5}).Validate())
	assert.Error(t, (&PricingRule{Thickness: 5, BasePricePerSqft: 100, BulkDiscountPercent: 100}).Validate())
	assert.NoError(t, (&PricingRule{Thickness: 5, BasePricePerSqft: 100, BulkDiscountPercent: 5}).Validate())
}

package dto

import (
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/inventory"
	"glasserp/internal/domain/product"
)

// ProductRequest creates a product.
type ProductRequest struct {
	Name             string `json:"name" binding:"required,max=200"`
	Category         string `json:"category" binding:"omitempty,max=50"`
	Description      string `json:"description" binding:"omitempty,max=1000"`
	ThicknessOptions []int  `json:"thickness_options" binding:"required,min=1,dive,gt=0,lte=25"`
	HSNCode          string `json:"hsn_code" binding:"omitempty,hsn"`
}

// ToEntity converts to a domain product.
func (r *ProductRequest) ToEntity() *product.Product {
	return &product.Product{
		Catalog:          entity.NewCatalog(r.Name),
		Category:         r.Category,
		Description:      r.Description,
		ThicknessOptions: r.ThicknessOptions,
		HSNCode:          r.HSNCode,
	}
}

// PricingRuleRequest sets the square-foot price of one thickness.
type PricingRuleRequest struct {
	Thickness           int         `json:"thickness" binding:"required,gt=0"`
	BasePricePerSqft    types.Paise `json:"base_price_per_sqft" binding:"required,gt=0"`
	BulkDiscountPercent float64     `json:"bulk_discount_percent" binding:"omitempty,min=0,max=90"`
	BulkMinSqft         float64     `json:"bulk_min_sqft" binding:"omitempty,min=0"`
}

// ToEntity converts to a domain rule.
func (r *PricingRuleRequest) ToEntity() *product.PricingRule {
	return &product.PricingRule{
		Thickness:           r.Thickness,
		BasePricePerSqft:    r.BasePricePerSqft,
		BulkDiscountPercent: r.BulkDiscountPercent,
		BulkMinSqft:         r.BulkMinSqft,
	}
}

// MaterialRequest creates a raw material.
type MaterialRequest struct {
	Name         string         `json:"name" binding:"required,max=200"`
	Category     string         `json:"category" binding:"omitempty,max=50"`
	Unit         string         `json:"unit" binding:"required,max=20"`
	CurrentStock types.Quantity `json:"current_stock" binding:"omitempty,min=0"`
	MinimumStock types.Quantity `json:"minimum_stock" binding:"omitempty,min=0"`
	UnitPrice    types.Paise    `json:"unit_price" binding:"omitempty,min=0"`
}

// ToEntity converts to a domain material.
func (r *MaterialRequest) ToEntity() *inventory.Material {
	return &inventory.Material{
		Catalog:      entity.NewCatalog(r.Name),
		Category:     r.Category,
		Unit:         r.Unit,
		CurrentStock: r.CurrentStock,
		MinimumStock: r.MinimumStock,
		UnitPrice:    r.UnitPrice,
	}
}

// StockTransactionRequest moves stock in, out or to an adjusted level.
type StockTransactionRequest struct {
	MaterialID id.ID          `json:"material_id" binding:"required"`
	Type       string         `json:"type" binding:"required,oneof=IN OUT ADJUST"`
	Quantity   types.Quantity `json:"quantity" binding:"min=0"`
	Reference  string         `json:"reference" binding:"omitempty,max=100"`
	Notes      string         `json:"notes" binding:"omitempty,max=500"`
}

// ToMovement converts to the service input.
func (r *StockTransactionRequest) ToMovement() inventory.Movement {
	return inventory.Movement{
		MaterialID: r.MaterialID,
		Type:       inventory.TxType(r.Type),
		Quantity:   r.Quantity,
		Reference:  r.Reference,
		Notes:      r.Notes,
	}
}

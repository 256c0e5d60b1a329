// Package inventory keeps raw material stock: materials and the append-only
// log of stock movements.
package inventory

import (
	"context"
	"strings"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/entity"
	"glasserp/internal/core/id"
	"glasserp/internal/core/types"
)

// Material is a stocked item: glass sheets, hardware, consumables.
type Material struct {
	entity.Catalog

	Category     string         `db:"category" json:"category"`
	Unit         string         `db:"unit" json:"unit"`
	CurrentStock types.Quantity `db:"current_stock" json:"current_stock"`
	MinimumStock types.Quantity `db:"minimum_stock" json:"minimum_stock"`
	UnitPrice    types.Paise    `db:"unit_price" json:"unit_price"`
}

// Validate implements entity.Validatable.
func (m *Material) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}
	m.Unit = strings.TrimSpace(m.Unit)
	if m.Unit == "" {
		return apperror.NewFieldValidation("unit", "unit is required")
	}
	if m.CurrentStock.IsNegative() {
		return apperror.NewFieldValidation("current_stock", "current_stock cannot be negative")
	}
	if m.MinimumStock.IsNegative() {
		return apperror.NewFieldValidation("minimum_stock", "minimum_stock cannot be negative")
	}
	if m.UnitPrice.IsNegative() {
		return apperror.NewFieldValidation("unit_price", "unit_price cannot be negative")
	}
	return nil
}

// IsLow reports whether stock is at or below the minimum.
func (m *Material) IsLow() bool {
	return m.MinimumStock > 0 && m.CurrentStock <= m.MinimumStock
}

// TxType is the kind of stock movement.
type TxType string

const (
	TxIn     TxType = "IN"
	TxOut    TxType = "OUT"
	TxAdjust TxType = "ADJUST"
)

// ParseTxType accepts upper or lower case.
func ParseTxType(s string) (TxType, bool) {
	t := TxType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case TxIn, TxOut, TxAdjust:
		return t, true
	}
	return "", false
}

// Transaction is one stock movement.
type Transaction struct {
	entity.Base

	MaterialID    id.ID          `db:"material_id" json:"material_id"`
	MaterialName  string         `db:"material_name" json:"material_name"`
	Type          TxType         `db:"type" json:"type"`
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	PreviousStock types.Quantity `db:"previous_stock" json:"previous_stock"`
	NewStock      types.Quantity `db:"new_stock" json:"new_stock"`
	Reference     string         `db:"reference" json:"reference,omitempty"`
	Notes         string         `db:"notes" json:"notes,omitempty"`
	CreatedBy     string         `db:"created_by" json:"created_by,omitempty"`
}

// Next computes the stock after a movement. IN adds, OUT subtracts and
// ADJUST sets the counted stock. Stock never goes negative.
func (m *Material) Next(t TxType, qty types.Quantity) (types.Quantity, error) {
	switch t {
	case TxIn, TxOut:
		if !qty.IsPositive() {
			return 0, apperror.NewFieldValidation("quantity", "quantity must be positive")
		}
		if t == TxIn {
			return m.CurrentStock + qty, nil
		}
		if qty > m.CurrentStock {
			return 0, apperror.NewInsufficientStock(m.ID.String(), qty.Float64(), m.CurrentStock.Float64())
		}
		return m.CurrentStock - qty, nil
	case TxAdjust:
		if qty.IsNegative() {
			return 0, apperror.NewFieldValidation("quantity", "counted stock cannot be negative")
		}
		return qty, nil
	}
	return 0, apperror.NewFieldValidation("type", "type must be IN, OUT or ADJUST")
}

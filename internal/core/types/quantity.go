package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quantity is a fixed-point stock quantity with 4 decimal places (scale = 1e4),
// stored as BIGINT.
type Quantity int64

const QuantityScale int64 = 10_000

var quantityScale = decimal.NewFromInt(QuantityScale)

// NewQuantityFromFloat64 converts a float quantity, rounding to 4 dp.
func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(decimal.NewFromFloat(v).Mul(quantityScale).Round(0).IntPart())
}

// ParseQuantity parses a decimal string, rounding to 4 dp.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity(d.Mul(quantityScale).Round(0).IntPart()), nil
}

func (q Quantity) Float64() float64 { return float64(q) / float64(QuantityScale) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

// String returns a decimal string with 4 fractional digits.
func (q Quantity) String() string {
	return decimal.New(int64(q), -4).StringFixed(4)
}

// MarshalJSON encodes Quantity as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts either a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := ParseQuantity(string(data))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

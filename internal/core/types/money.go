// Package types provides money and quantity value types.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Paise is a rupee amount held as integer paise (1 ₹ = 100 paise).
// All money arithmetic happens on Paise; decimal is used only at the
// JSON boundary and for rate multiplication.
type Paise int64

var hundred = decimal.NewFromInt(100)

// PaiseFromDecimal converts rupees to paise, rounding half away from zero at 2 dp.
func PaiseFromDecimal(rupees decimal.Decimal) Paise {
	return Paise(rupees.Mul(hundred).Round(0).IntPart())
}

// PaiseFromRupees converts a float rupee value. Prefer ParsePaise for user input.
func PaiseFromRupees(rupees float64) Paise {
	return PaiseFromDecimal(decimal.NewFromFloat(rupees))
}

// ParsePaise parses a decimal rupee string such as "1500" or "317.42".
func ParsePaise(s string) (Paise, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return PaiseFromDecimal(d), nil
}

// Rupees returns the value as a decimal rupee amount.
func (p Paise) Rupees() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// Float64 returns the rupee value for display and spreadsheet export.
func (p Paise) Float64() float64 {
	return float64(p) / 100
}

// String formats with exactly two fractional digits.
func (p Paise) String() string {
	return p.Rupees().StringFixed(2)
}

// MulRate multiplies by a percentage (18 means 18 %) and rounds to the paisa.
func (p Paise) MulRate(percent decimal.Decimal) Paise {
	return PaiseFromDecimal(p.Rupees().Mul(percent).Div(hundred))
}

// Percent returns the share of p corresponding to percent (an integer percentage).
func (p Paise) Percent(percent int) Paise {
	return p.MulRate(decimal.NewFromInt(int64(percent)))
}

func (p Paise) IsZero() bool     { return p == 0 }
func (p Paise) IsPositive() bool { return p > 0 }
func (p Paise) IsNegative() bool { return p < 0 }

// Abs returns the absolute value.
func (p Paise) Abs() Paise {
	if p < 0 {
		return -p
	}
	return p
}

// Min returns the smaller of two amounts.
func Min(a, b Paise) Paise {
	if a < b {
		return a
	}
	return b
}

// MarshalJSON encodes paise as a JSON number in rupees ("1800.00").
func (p Paise) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string in rupees.
func (p *Paise) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	v, err := ParsePaise(string(data))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

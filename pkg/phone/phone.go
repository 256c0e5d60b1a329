// Package phone normalises Indian mobile numbers to E.164.
package phone

import (
	"fmt"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// DefaultRegion is used for numbers written without a country code.
const DefaultRegion = "IN"

// Normalize parses raw in region IN and returns it as +91XXXXXXXXXX.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("phone number is empty")
	}
	p, err := libphonenumber.Parse(raw, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("phone number %q: %w", raw, err)
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number %q is not valid", raw)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// IsMobile reports whether raw is a valid mobile number.
func IsMobile(raw string) bool {
	p, err := libphonenumber.Parse(strings.TrimSpace(raw), DefaultRegion)
	if err != nil || !libphonenumber.IsValidNumber(p) {
		return false
	}
	t := libphonenumber.GetNumberType(p)
	return t == libphonenumber.MOBILE || t == libphonenumber.FIXED_LINE_OR_MOBILE
}

// National returns the 10-digit national significant number, as SMS gateways
// in India expect it.
func National(e164 string) string {
	p, err := libphonenumber.Parse(e164, DefaultRegion)
	if err != nil {
		return strings.TrimPrefix(e164, "+91")
	}
	return libphonenumber.GetNationalSignificantNumber(p)
}

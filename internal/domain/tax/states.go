package tax

import (
	"regexp"
	"sort"
	"strings"

	"glasserp/internal/core/apperror"
)

// State is an Indian GST state code.
type State struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var stateNames = map[string]string{
	"01": "Jammu and Kashmir",
	"02": "Himachal Pradesh",
	"03": "Punjab",
	"04": "Chandigarh",
	"05": "Uttarakhand",
	"06": "Haryana",
	"07": "Delhi",
	"08": "Rajasthan",
	"09": "Uttar Pradesh",
	"10": "Bihar",
	"11": "Sikkim",
	"12": "Arunachal Pradesh",
	"13": "Nagaland",
	"14": "Manipur",
	"15": "Mizoram",
	"16": "Tripura",
	"17": "Meghalaya",
	"18": "Assam",
	"19": "West Bengal",
	"20": "Jharkhand",
	"21": "Odisha",
	"22": "Chhattisgarh",
	"23": "Madhya Pradesh",
	"24": "Gujarat",
	"26": "Dadra and Nagar Haveli and Daman and Diu",
	"27": "Maharashtra",
	"28": "Andhra Pradesh (Old)",
	"29": "Karnataka",
	"30": "Goa",
	"31": "Lakshadweep",
	"32": "Kerala",
	"33": "Tamil Nadu",
	"34": "Puducherry",
	"35": "Andaman and Nicobar Islands",
	"36": "Telangana",
	"37": "Andhra Pradesh",
	"38": "Ladakh",
	"97": "Other Territory",
}

// States returns every state ordered by code.
func States() []State {
	out := make([]State, 0, len(stateNames))
	for code, name := range stateNames {
		out = append(out, State{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// IsStateCode reports whether code is a known two-digit state code.
func IsStateCode(code string) bool {
	_, ok := stateNames[code]
	return ok
}

// StateName returns the name for code, or "" when unknown.
func StateName(code string) string {
	return stateNames[code]
}

var (
	gstinPattern = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	hsnPattern   = regexp.MustCompile(`^[0-9]{4}([0-9]{2}){0,2}$`)
)

// NormalizeGSTIN upper-cases and validates a GSTIN. Empty input is allowed.
func NormalizeGSTIN(gstin string) (string, error) {
	g := strings.ToUpper(strings.TrimSpace(gstin))
	if g == "" {
		return "", nil
	}
	if !gstinPattern.MatchString(g) {
		return "", apperror.NewFieldValidation("gstin", "GSTIN must be 15 characters in the standard format")
	}
	if !IsStateCode(g[:2]) {
		return "", apperror.NewFieldValidation("gstin", "GSTIN starts with an unknown state code "+g[:2])
	}
	return g, nil
}

// StateFromGSTIN returns the state code encoded in a valid GSTIN.
func StateFromGSTIN(gstin string) string {
	if len(gstin) < 2 {
		return ""
	}
	return gstin[:2]
}

// IsHSNFormat reports whether code has 4, 6 or 8 digits.
func IsHSNFormat(code string) bool {
	return hsnPattern.MatchString(code)
}

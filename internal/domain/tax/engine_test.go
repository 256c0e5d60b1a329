package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glasserp/internal/core/apperror"
	"glasserp/internal/core/types"
	"glasserp/internal/domain/settings"
)

func rupees(v float64) types.Paise { return types.PaiseFromRupees(v) }

func TestCompute_IntraState(t *testing.T) {
	b, err := Compute(settings.DefaultGST("27"), Input{Taxable: rupees(10000), StateCode: "27", HSNCode: "7007"})
	require.NoError(t, err)

	assert.Equal(t, IntraState, b.GSTType)
	assert.Equal(t, 9.0, b.CGSTRate)
	assert.Equal(t, 9.0, b.SGSTRate)
	assert.Equal(t, 0.0, b.IGSTRate)
	assert.Equal(t, rupees(900), b.CGSTAmount)
	assert.Equal(t, rupees(900), b.SGSTAmount)
	assert.Equal(t, types.Paise(0), b.IGSTAmount)
	assert.Equal(t, rupees(1800), b.TotalGST)
	assert.Equal(t, rupees(11800), b.TotalAmount)
}

func TestCompute_InterState(t *testing.T) {
	b, err := Compute(settings.DefaultGST("27"), Input{Taxable: rupees(10000), StateCode: "07", HSNCode: "7007"})
	require.NoError(t, err)

	assert.Equal(t, InterState, b.GSTType)
	assert.Equal(t, 18.0, b.IGSTRate)
	assert.Equal(t, rupees(1800), b.IGSTAmount)
	assert.Equal(t, types.Paise(0), b.CGSTAmount)
	assert.Equal(t, types.Paise(0), b.SGSTAmount)
	assert.Equal(t, rupees(11800), b.TotalAmount)
}

func TestCompute_LegsAlwaysSum(t *testing.T) {
	cfg := settings.DefaultGST("27")
	cfg.HSNCodes = append(cfg.HSNCodes, settings.HSNCode{Code: "7010", GSTRate: 12})

	amounts := []types.Paise{1, 3, 99, 12345, 26900, 999999, 31742}
	for _, amt := range amounts {
		for _, state := range []string{"27", "29"} {
			for _, hsn := range []string{"", "7007", "7010"} {
				b, err := Compute(cfg, Input{Taxable: amt, StateCode: state, HSNCode: hsn})
				require.NoError(t, err)
				assert.Equal(t, b.TotalGST, b.CGSTAmount+b.SGSTAmount+b.IGSTAmount)
				assert.Equal(t, b.TotalAmount, amt+b.TotalGST)
				if b.GSTType == IntraState {
					assert.Equal(t, b.CGSTAmount, b.SGSTAmount)
					assert.Zero(t, b.IGSTAmount)
				} else {
					assert.Zero(t, b.CGSTAmount)
					assert.Zero(t, b.SGSTAmount)
				}
			}
		}
	}
}

func TestCompute_HSNResolution(t *testing.T) {
	cfg := settings.DefaultGST("27")
	cfg.DefaultGSTRate = 12

	b, err := Compute(cfg, Input{Taxable: rupees(100), StateCode: "27"})
	require.NoError(t, err)
	assert.Equal(t, 12.0, b.Rate)

	b, err = Compute(cfg, Input{Taxable: rupees(100), StateCode: "27", HSNCode: "70071900"})
	require.NoError(t, err)
	assert.Equal(t, 18.0, b.Rate)
}

func TestCompute_Errors(t *testing.T) {
	cfg := settings.DefaultGST("27")

	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"missing state", Input{Taxable: 100}, "delivery_state_code"},
		{"unknown state", Input{Taxable: 100, StateCode: "99"}, "delivery_state_code"},
		{"malformed hsn", Input{Taxable: 100, StateCode: "27", HSNCode: "70A7"}, "hsn_code"},
		{"unknown hsn", Input{Taxable: 100, StateCode: "27", HSNCode: "8471"}, "hsn_code"},
		{"negative", Input{Taxable: -1, StateCode: "27"}, "amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(cfg, tt.in)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestNormalizeGSTIN(t *testing.T) {
	g, err := NormalizeGSTIN(" 27aapfu0939f1zv ")
	require.NoError(t, err)
	assert.Equal(t, "27AAPFU0939F1ZV", g)
	assert.Equal(t, "27", StateFromGSTIN(g))

	_, err = NormalizeGSTIN("27AAPFU0939F1Z")
	assert.Error(t, err)

	_, err = NormalizeGSTIN("99AAPFU0939F1ZV")
	assert.Error(t, err)

	g, err = NormalizeGSTIN("")
	require.NoError(t, err)
	assert.Empty(t, g)
}

func TestStates(t *testing.T) {
	states := States()
	require.NotEmpty(t, states)
	assert.Equal(t, "01", states[0].Code)
	assert.Equal(t, "Maharashtra", StateName("27"))
	assert.False(t, IsStateCode("00"))
}
